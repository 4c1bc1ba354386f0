// Package search provides the rate limited web search client and the
// provider engines it drives.
package search

import "context"

// Engine defines a concrete search backend that can process queries and return results.
type Engine interface {
	// Name returns the unique identifier for the engine instance.
	Name() string
	// Search executes the query and returns a slice of Result when successful.
	Search(ctx context.Context, query string) ([]Result, error)
	// Close releases the engine's network session. Safe to call more than once.
	Close() error
}
