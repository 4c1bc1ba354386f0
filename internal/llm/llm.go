// Package llm provides the language model capability used to condense
// search results into research summaries.
package llm

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
)

// ErrEmptyResponse reports that the provider answered without any content.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// UpstreamError reports a failure returned by the completion provider.
// Callers decide per item how to degrade; the error is never swallowed here.
type UpstreamError struct {
	cause error
}

// NewUpstreamError wraps the provider failure.
func NewUpstreamError(cause error) *UpstreamError {
	return &UpstreamError{cause: cause}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm upstream failure: %v", e.cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.cause
}

// Client is the capability interface over a concrete completion backend.
// The backend choice is made once at construction time, not per call.
type Client interface {
	// Generate produces a completion for the prompt under the system prompt.
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
	// Summarize condenses text; topic, when non-empty, directs relevance.
	Summarize(ctx context.Context, text, topic string) (string, error)
}
