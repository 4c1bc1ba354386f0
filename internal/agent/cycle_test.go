package agent

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/nocturnelabs/researchbot/internal/findings"
	"github.com/nocturnelabs/researchbot/internal/llm"
	"github.com/nocturnelabs/researchbot/library/search"
)

type fakeSearcher struct {
	results    []search.Result
	calls      int
	closeCalls int
}

func (f *fakeSearcher) Search(_ context.Context, query string) []search.Result {
	f.calls++
	if strings.TrimSpace(query) == "" {
		return nil
	}
	return f.results
}

func (f *fakeSearcher) Close() error {
	f.closeCalls++
	return nil
}

type fakeLLM struct {
	mu      sync.Mutex
	failFor map[string]error
	calls   []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, prompt)
	if err, ok := f.failFor[prompt]; ok {
		return "", err
	}
	return "summary of: " + prompt, nil
}

func (f *fakeLLM) Summarize(ctx context.Context, text, _ string) (string, error) {
	return f.Generate(ctx, text, "")
}

type failingStore struct {
	findings.MemoryStore
	failures int
	stored   int
}

func (s *failingStore) Store(ctx context.Context, prompt string, results []search.Result, summaries []findings.Summary) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("storage unavailable")
	}
	s.stored++
	return s.MemoryStore.Store(ctx, prompt, results, summaries)
}

func threeResults() []search.Result {
	return []search.Result{
		{Title: "First", URL: "https://a.example.com/1", Snippet: "snippet one", Source: "a.example.com", Timestamp: 1},
		{Title: "Second", URL: "https://b.example.com/2", Snippet: "snippet two", Source: "b.example.com", Timestamp: 2},
		{Title: "Third", URL: "https://c.example.com/3", Snippet: "snippet three", Source: "c.example.com", Timestamp: 3},
	}
}

func TestCycleCompletesWithPartialFailure(t *testing.T) {
	searcher := &fakeSearcher{results: threeResults()}
	model := &fakeLLM{failFor: map[string]error{
		"snippet two": llm.NewUpstreamError(errors.New("backend exploded")),
	}}
	store := findings.NewMemoryStore()

	orchestrator := NewOrchestrator(searcher, model, store, findings.NewMemorySeen())
	outcome, err := orchestrator.RunCycle(context.Background(), "quantum computing breakthroughs")
	require.NoError(t, err)

	require.Equal(t, CycleCompleted, outcome.State)
	require.Len(t, outcome.Results, 3)
	require.Equal(t, 2, outcome.SummaryCount())
	require.Equal(t, 1, outcome.FailureCount())

	// failed item is reported in place, in result order
	require.Equal(t, "Second", outcome.Summaries[1].Result.Title)
	require.Error(t, outcome.Summaries[1].Err)

	records := store.Records()
	require.Len(t, records, 1)
	require.Len(t, records[0].Summaries, 2)
	require.Equal(t, "First", records[0].Summaries[0].Result.Title)
	require.Equal(t, "Third", records[0].Summaries[1].Result.Title)
}

func TestCycleSkipsEmptySnippets(t *testing.T) {
	results := threeResults()
	results[1].Snippet = "   "

	searcher := &fakeSearcher{results: results}
	model := &fakeLLM{}
	orchestrator := NewOrchestrator(searcher, model, findings.NewMemoryStore(), nil)

	outcome, err := orchestrator.RunCycle(context.Background(), "topic")
	require.NoError(t, err)

	require.Equal(t, CycleCompleted, outcome.State)
	// still counted in the result set, excluded from the summary set
	require.Len(t, outcome.Results, 3)
	require.Equal(t, 1, outcome.SkippedEmpty)
	require.Equal(t, 2, outcome.SummaryCount())
}

func TestCycleCompletesWithZeroResults(t *testing.T) {
	searcher := &fakeSearcher{}
	model := &fakeLLM{}
	store := findings.NewMemoryStore()
	orchestrator := NewOrchestrator(searcher, model, store, nil)

	outcome, err := orchestrator.RunCycle(context.Background(), "")
	require.NoError(t, err)

	require.Equal(t, CycleCompleted, outcome.State)
	require.Empty(t, outcome.Results)
	require.Empty(t, outcome.Summaries)
	require.Empty(t, model.calls)
	// the empty cycle is still reported to the store collaborator
	require.Len(t, store.Records(), 1)
}

func TestCycleSummarizesEachResultOnce(t *testing.T) {
	searcher := &fakeSearcher{results: threeResults()}
	model := &fakeLLM{}
	orchestrator := NewOrchestrator(searcher, model, findings.NewMemoryStore(), nil)

	_, err := orchestrator.RunCycle(context.Background(), "topic")
	require.NoError(t, err)

	require.Equal(t, []string{"snippet one", "snippet two", "snippet three"}, model.calls)
}

func TestCycleSkipsAlreadySeenURLs(t *testing.T) {
	searcher := &fakeSearcher{results: threeResults()}
	model := &fakeLLM{}
	seen := findings.NewMemorySeen()
	orchestrator := NewOrchestrator(searcher, model, findings.NewMemoryStore(), seen)

	first, err := orchestrator.RunCycle(context.Background(), "topic")
	require.NoError(t, err)
	require.Equal(t, 3, first.SummaryCount())

	second, err := orchestrator.RunCycle(context.Background(), "topic")
	require.NoError(t, err)
	require.Equal(t, 0, second.SummaryCount())
	require.Equal(t, 3, second.SkippedSeen)
	// no result was summarized twice
	require.Len(t, model.calls, 3)
}

func TestCycleFailsWhenStoreFails(t *testing.T) {
	searcher := &fakeSearcher{results: threeResults()}
	store := &failingStore{failures: 1}
	orchestrator := NewOrchestrator(searcher, &fakeLLM{}, store, nil)

	outcome, err := orchestrator.RunCycle(context.Background(), "topic")
	require.Error(t, err)
	require.Equal(t, CycleFailed, outcome.State)
	require.Contains(t, err.Error(), "store cycle outcome")
}

func TestCycleStopsBetweenItemsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searcher := &fakeSearcher{results: threeResults()}
	model := &fakeLLM{}
	orchestrator := NewOrchestrator(searcher, model, findings.NewMemoryStore(), nil)

	outcome, err := orchestrator.RunCycle(ctx, "topic")
	require.Error(t, err)
	require.Equal(t, CycleFailed, outcome.State)
	require.Empty(t, model.calls)
}
