package llm

import (
	"context"
	"fmt"
	"strings"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/nocturnelabs/researchbot/internal/config"
	"github.com/nocturnelabs/researchbot/library/log"
)

const defaultSystemPrompt = "You are a helpful research assistant."

const summarizeSystemPrompt = "Please summarize the following text concisely. " +
	"Focus on the key findings, data, and conclusions. " +
	"Extract the most critical information that would be useful for a research report."

// OpenAICompatible talks to any OpenAI compatible chat completion endpoint
// (LM Studio, Ollama, hosted servers).
type OpenAICompatible struct {
	client   openai.Client
	modelCfg config.ModelConfig
	logger   logSDK.Logger
}

// NewOpenAICompatible constructs a client against the given base URL.
// An empty baseURL targets the official endpoint.
func NewOpenAICompatible(modelCfg config.ModelConfig, apiKey, baseURL string) *OpenAICompatible {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}

	logger := log.Logger.Named("llm")
	logger.Info("initialized openai compatible llm",
		zap.String("model", modelCfg.Name),
		zap.String("base_url", baseURL))

	return &OpenAICompatible{
		client:   openai.NewClient(opts...),
		modelCfg: modelCfg,
		logger:   logger,
	}
}

// Generate produces a completion via the chat completions endpoint.
func (c *OpenAICompatible) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelCfg.Name),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.modelCfg.Temperature),
		MaxTokens:   openai.Int(int64(c.modelCfg.MaxTokens)),
		TopP:        openai.Float(c.modelCfg.TopP),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error("llm completion failed", zap.Error(err))
		return "", NewUpstreamError(err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}

	return content, nil
}

// Summarize condenses the text under a fixed instructional system prompt,
// optionally steering relevance toward the research topic.
func (c *OpenAICompatible) Summarize(ctx context.Context, text, topic string) (string, error) {
	systemPrompt := summarizeSystemPrompt
	if topic != "" {
		systemPrompt += fmt.Sprintf("\n\nThe summary should be relevant to the following topic: %s", topic)
	}

	return c.Generate(ctx, text, systemPrompt)
}
