// Package agent contains the research cycle orchestrator and the process
// lifecycle controller that drives it.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/nocturnelabs/researchbot/internal/findings"
	"github.com/nocturnelabs/researchbot/internal/llm"
	"github.com/nocturnelabs/researchbot/library/log"
	"github.com/nocturnelabs/researchbot/library/search"
)

// CycleState tracks the progress of a single research cycle.
type CycleState string

const (
	CycleSearching   CycleState = "searching"
	CycleSummarizing CycleState = "summarizing"
	CycleCompleted   CycleState = "completed"
	CycleFailed      CycleState = "failed"
)

// Searcher is the slice of the search client the orchestrator depends on.
type Searcher interface {
	// Search returns results for the query; failures degrade to empty.
	Search(ctx context.Context, query string) []search.Result
	// Close releases the search session.
	Close() error
}

// ItemSummary is one summarization attempt, in search-result order.
// Either Summary or Err is set.
type ItemSummary struct {
	Result  search.Result
	Summary string
	Err     error
}

// Outcome aggregates everything one cycle produced. It lives only until it
// has been handed to the findings store.
type Outcome struct {
	CycleID string
	Prompt  string
	State   CycleState

	Results   []search.Result
	Summaries []ItemSummary

	SkippedEmpty int
	SkippedSeen  int

	StartedAt  time.Time
	FinishedAt time.Time
}

// SummaryCount returns how many items were successfully summarized.
func (o *Outcome) SummaryCount() int {
	n := 0
	for _, item := range o.Summaries {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// FailureCount returns how many summarization attempts failed.
func (o *Outcome) FailureCount() int {
	return len(o.Summaries) - o.SummaryCount()
}

// successes converts the completed summaries into the store's shape.
func (o *Outcome) successes() []findings.Summary {
	out := make([]findings.Summary, 0, len(o.Summaries))
	for _, item := range o.Summaries {
		if item.Err == nil {
			out = append(out, findings.Summary{Result: item.Result, Text: item.Summary})
		}
	}
	return out
}

// Orchestrator runs one research cycle: search, fan out summarization over
// the results, aggregate, persist.
type Orchestrator struct {
	searcher Searcher
	llm      llm.Client
	store    findings.Store
	seen     findings.Seen
	logger   logSDK.Logger
}

// NewOrchestrator wires the cycle collaborators together.
func NewOrchestrator(searcher Searcher, llmClient llm.Client, store findings.Store, seen findings.Seen) *Orchestrator {
	return &Orchestrator{
		searcher: searcher,
		llm:      llmClient,
		store:    store,
		seen:     seen,
		logger:   log.Logger.Named("cycle"),
	}
}

// RunCycle executes exactly one cycle for the prompt. Search failures and
// per-item summarization failures degrade in place; the returned error is
// reserved for cancellation and for failures escaping the cycle body (which
// leave the outcome in the failed state).
func (o *Orchestrator) RunCycle(ctx context.Context, prompt string) (*Outcome, error) {
	outcome := &Outcome{
		CycleID:   gutils.UUID7(),
		Prompt:    prompt,
		State:     CycleSearching,
		StartedAt: gutils.Clock.GetUTCNow(),
	}
	logger := o.logger.With(zap.String("cycle_id", outcome.CycleID))

	logger.Info("cycle searching", zap.String("prompt", prompt))
	outcome.Results = o.searcher.Search(ctx, prompt)
	if len(outcome.Results) == 0 {
		logger.Warn("found 0 results, completing cycle without summaries")
		return o.complete(ctx, logger, outcome)
	}
	logger.Info("search results found", zap.Int("results", len(outcome.Results)))

	outcome.State = CycleSummarizing
	for _, result := range outcome.Results {
		if err := ctx.Err(); err != nil {
			outcome.State = CycleFailed
			outcome.FinishedAt = gutils.Clock.GetUTCNow()
			return outcome, errors.Wrap(err, "cycle cancelled")
		}

		if strings.TrimSpace(result.Snippet) == "" {
			outcome.SkippedEmpty++
			logger.Warn("skip result with empty snippet",
				zap.String("title", result.Title),
				zap.String("url", result.URL))
			continue
		}

		if o.seen != nil && result.URL != "" && o.seen.IsSeen(ctx, result.URL) {
			outcome.SkippedSeen++
			logger.Debug("skip already summarized result",
				zap.String("url", result.URL))
			continue
		}

		// cancellation is observed between items, never mid-flight
		summary, err := o.llm.Summarize(context.WithoutCancel(ctx), result.Snippet, prompt)
		if err != nil {
			logger.Error("summarize result failed",
				zap.String("title", result.Title),
				zap.String("url", result.URL),
				zap.Error(err))
			outcome.Summaries = append(outcome.Summaries, ItemSummary{Result: result, Err: err})
			continue
		}

		outcome.Summaries = append(outcome.Summaries, ItemSummary{Result: result, Summary: summary})
	}

	if outcome.SkippedEmpty > 0 || outcome.FailureCount() > 0 {
		logger.Warn("cycle degraded",
			zap.Int("skipped_empty", outcome.SkippedEmpty),
			zap.Int("failed", outcome.FailureCount()))
	}

	return o.complete(ctx, logger, outcome)
}

// complete persists the aggregate and finalises the outcome. A store
// failure is the one error that escapes the cycle body.
func (o *Orchestrator) complete(ctx context.Context, logger logSDK.Logger, outcome *Outcome) (*Outcome, error) {
	if err := o.store.Store(ctx, outcome.Prompt, outcome.Results, outcome.successes()); err != nil {
		outcome.State = CycleFailed
		outcome.FinishedAt = gutils.Clock.GetUTCNow()
		return outcome, errors.Wrap(err, "store cycle outcome")
	}

	if o.seen != nil {
		for _, item := range outcome.Summaries {
			if item.Err == nil && item.Result.URL != "" {
				o.seen.MarkSeen(ctx, item.Result.URL)
			}
		}
	}

	outcome.State = CycleCompleted
	outcome.FinishedAt = gutils.Clock.GetUTCNow()
	logger.Info("cycle completed",
		zap.Int("results", len(outcome.Results)),
		zap.Int("summaries", outcome.SummaryCount()),
		zap.Int("failed", outcome.FailureCount()),
		zap.Int("skipped_empty", outcome.SkippedEmpty),
		zap.Int("skipped_seen", outcome.SkippedSeen),
		zap.Duration("cost", outcome.FinishedAt.Sub(outcome.StartedAt)))
	return outcome, nil
}
