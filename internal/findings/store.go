// Package findings persists the outcome of research cycles and remembers
// which result URLs were already summarized.
package findings

import (
	"context"

	"github.com/nocturnelabs/researchbot/library/search"
)

// Summary pairs a search result with its condensed text.
type Summary struct {
	Result search.Result
	Text   string
}

// Store is the narrow contract the orchestrator hands each cycle outcome to.
type Store interface {
	// Store persists one cycle's results and summaries.
	Store(ctx context.Context, prompt string, results []search.Result, summaries []Summary) error
	// Close flushes and releases the store. Safe to call more than once.
	Close(ctx context.Context) error
}

// Seen remembers summarized URLs across cycles so continuous cadence does
// not condense the same page twice.
type Seen interface {
	// IsSeen reports whether the URL was already summarized. Lookup
	// failures degrade to false so a broken cache never drops work.
	IsSeen(ctx context.Context, url string) bool
	// MarkSeen records the URL.
	MarkSeen(ctx context.Context, url string)
}
