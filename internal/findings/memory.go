package findings

import (
	"context"
	"sync"

	"github.com/nocturnelabs/researchbot/library/search"
)

// MemoryStore keeps findings in process memory. It is the default store
// when no MongoDB address is configured, and the double used in tests.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

// Record is one persisted cycle outcome.
type Record struct {
	Prompt    string
	Results   []search.Result
	Summaries []Summary
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Store appends the cycle outcome.
func (s *MemoryStore) Store(_ context.Context, prompt string, results []search.Result, summaries []Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, Record{
		Prompt:    prompt,
		Results:   results,
		Summaries: summaries,
	})
	return nil
}

// Close marks the store closed. Idempotent.
func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Records returns a snapshot of everything stored so far.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// MemorySeen is the in-process Seen implementation.
type MemorySeen struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewMemorySeen returns an empty seen set.
func NewMemorySeen() *MemorySeen {
	return &MemorySeen{urls: map[string]struct{}{}}
}

func (s *MemorySeen) IsSeen(_ context.Context, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.urls[url]
	return ok
}

func (s *MemorySeen) MarkSeen(_ context.Context, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.urls[url] = struct{}{}
}
