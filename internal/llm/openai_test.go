package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/nocturnelabs/researchbot/internal/config"
)

type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func testModelConfig() config.ModelConfig {
	return config.ModelConfig{
		Name:        "phi-3-mini",
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   1024,
	}
}

func completionHandler(t *testing.T, content string, gotReq *completionRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.URL.Path, "/chat/completions")
		if gotReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotReq))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
	}
}

func TestGenerate(t *testing.T) {
	var gotReq completionRequest
	server := httptest.NewServer(completionHandler(t, "  the answer  ", &gotReq))
	defer server.Close()

	client := NewOpenAICompatible(testModelConfig(), "lm-studio", server.URL)
	answer, err := client.Generate(context.Background(), "what is dark matter", "")
	require.NoError(t, err)
	require.Equal(t, "the answer", answer)

	require.Equal(t, "phi-3-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	require.Equal(t, "system", gotReq.Messages[0].Role)
	require.Equal(t, defaultSystemPrompt, gotReq.Messages[0].Content)
	require.Equal(t, "user", gotReq.Messages[1].Role)
	require.Equal(t, "what is dark matter", gotReq.Messages[1].Content)
	require.InDelta(t, 0.7, gotReq.Temperature, 0.001)
	require.Equal(t, 1024, gotReq.MaxTokens)
}

func TestSummarizeCarriesTopic(t *testing.T) {
	var gotReq completionRequest
	server := httptest.NewServer(completionHandler(t, "a summary", &gotReq))
	defer server.Close()

	client := NewOpenAICompatible(testModelConfig(), "lm-studio", server.URL)
	summary, err := client.Summarize(context.Background(), "long article text", "dark matter")
	require.NoError(t, err)
	require.Equal(t, "a summary", summary)

	require.Contains(t, gotReq.Messages[0].Content, "summarize the following text concisely")
	require.Contains(t, gotReq.Messages[0].Content, "relevant to the following topic: dark matter")
	require.Equal(t, "long article text", gotReq.Messages[1].Content)
}

func TestGenerateUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOpenAICompatible(testModelConfig(), "lm-studio", server.URL)
	_, err := client.Generate(context.Background(), "prompt", "")
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
}

func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	client := NewOpenAICompatible(testModelConfig(), "lm-studio", server.URL)
	_, err := client.Generate(context.Background(), "prompt", "")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateBlankContent(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "   ", nil))
	defer server.Close()

	client := NewOpenAICompatible(testModelConfig(), "lm-studio", server.URL)
	_, err := client.Generate(context.Background(), "prompt", "")
	require.ErrorIs(t, err, ErrEmptyResponse)
}
