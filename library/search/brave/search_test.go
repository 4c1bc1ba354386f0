package brave

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngineSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("X-Subscription-Token"))
		require.Equal(t, "test-query", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"web": {"results": [
				{"title": "Result 1", "url": "https://example.com/1", "description": "Description 1"}
			]}
		}`))
	}))
	defer server.Close()

	engine := NewEngine("secret", WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	items, err := engine.Search(context.Background(), "test-query")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Result 1", items[0].Title)
	require.Equal(t, "https://example.com/1", items[0].URL)
	require.Equal(t, "Description 1", items[0].Snippet)
	require.Contains(t, items[0].Favicon, "example.com")
}

func TestEngineHandlesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	engine := NewEngine("secret", WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	items, err := engine.Search(context.Background(), "query")
	require.Error(t, err)
	require.Nil(t, items)
}

func TestEngineValidatesAPIKey(t *testing.T) {
	engine := NewEngine(" ")

	items, err := engine.Search(context.Background(), "query")
	require.Error(t, err)
	require.Nil(t, items)
	require.Contains(t, err.Error(), "api key")
}
