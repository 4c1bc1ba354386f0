package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/nocturnelabs/researchbot/internal/config"
	"github.com/nocturnelabs/researchbot/internal/findings"
	"github.com/nocturnelabs/researchbot/internal/llm"
	"github.com/nocturnelabs/researchbot/library/log"
	"github.com/nocturnelabs/researchbot/library/search"
	"github.com/nocturnelabs/researchbot/library/search/brave"
	"github.com/nocturnelabs/researchbot/library/search/serpapi"
)

// State is the lifecycle position of the controller. Transitions are
// monotonic except Running, which repeats cycles.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CycleStats is the status snapshot of the most recent cycle.
type CycleStats struct {
	CycleID      string     `json:"cycle_id"`
	State        CycleState `json:"state"`
	Results      int        `json:"results"`
	Summaries    int        `json:"summaries"`
	Failures     int        `json:"failures"`
	SkippedEmpty int        `json:"skipped_empty"`
	SkippedSeen  int        `json:"skipped_seen"`
	FinishedAt   time.Time  `json:"finished_at"`
}

// Stats is the status snapshot served by the status endpoint.
type Stats struct {
	State           string      `json:"state"`
	Prompt          string      `json:"prompt"`
	CyclesCompleted int         `json:"cycles_completed"`
	LastCycle       *CycleStats `json:"last_cycle,omitempty"`
}

// ControllerOption injects a collaborator, primarily for tests.
type ControllerOption func(*Controller)

// WithSearcher overrides the search client built from configuration.
func WithSearcher(searcher Searcher) ControllerOption {
	return func(c *Controller) { c.searcher = searcher }
}

// WithLLM overrides the completion client built from configuration.
func WithLLM(client llm.Client) ControllerOption {
	return func(c *Controller) { c.llm = client }
}

// WithStore overrides the findings store built from configuration.
func WithStore(store findings.Store) ControllerOption {
	return func(c *Controller) { c.store = store }
}

// WithSeen overrides the seen-URL cache built from configuration.
func WithSeen(seen findings.Seen) ControllerOption {
	return func(c *Controller) { c.seen = seen }
}

// Controller owns the init -> run -> shutdown state machine. Exactly one
// instance exists per process.
type Controller struct {
	cfg    *config.Config
	logger logSDK.Logger

	state atomic.Int32

	searcher Searcher
	llm      llm.Client
	store    findings.Store
	seen     findings.Seen

	shutdownOnce sync.Once

	statsMu         sync.Mutex
	cyclesCompleted int
	lastCycle       *CycleStats
}

// NewController builds a controller for the given configuration.
func NewController(cfg *config.Config, opts ...ControllerOption) *Controller {
	controller := &Controller{
		cfg:    cfg,
		logger: log.Logger.Named("lifecycle"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(controller)
		}
	}

	return controller
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Stats returns the status snapshot.
func (c *Controller) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	stats := Stats{
		State:           c.State().String(),
		Prompt:          c.cfg.Prompt,
		CyclesCompleted: c.cyclesCompleted,
	}
	if c.lastCycle != nil {
		snapshot := *c.lastCycle
		stats.LastCycle = &snapshot
	}
	return stats
}

// Run drives the whole lifecycle and blocks until the controller stops.
// Cancelling ctx requests a cooperative shutdown, observed at cycle
// boundaries and during the inter-cycle wait. Calling Run while the
// controller is not idle is a no-op with a warning. A returned error means
// initialization failed; cycle failures shut down in an orderly fashion
// and are not reported as process errors.
func (c *Controller) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateInitializing)) {
		c.logger.Warn("controller is already running", zap.Stringer("state", c.State()))
		return nil
	}

	c.logger.Info("initializing",
		zap.String("prompt", c.cfg.Prompt),
		zap.Bool("continuous", c.cfg.Continuous))
	if err := c.initialize(ctx); err != nil {
		c.state.Store(int32(StateStopped))
		return errors.Wrap(err, "initialize collaborators")
	}

	c.state.Store(int32(StateRunning))
	c.logger.Info("running")

	orchestrator := NewOrchestrator(c.searcher, c.llm, c.store, c.seen)
	c.runLoop(ctx, orchestrator)

	c.Shutdown()
	return nil
}

// runLoop repeats cycles per the cadence policy until shutdown is
// requested or, in single-pass mode, the first cycle ends.
func (c *Controller) runLoop(ctx context.Context, orchestrator *Orchestrator) {
	for {
		outcome, err := orchestrator.RunCycle(ctx, c.cfg.Prompt)
		c.recordOutcome(outcome)

		if ctx.Err() != nil {
			c.logger.Info("shutdown requested, stopping cycles")
			return
		}

		if !c.cfg.Continuous {
			if err != nil {
				c.logger.Error("cycle failed, ending single-pass run", zap.Error(err))
			}
			return
		}

		wait := c.cfg.CycleInterval
		if err != nil {
			c.logger.Error("cycle failed, backing off before retry", zap.Error(err))
			wait = c.cfg.ErrorBackoff
		}

		if !c.sleep(ctx, wait) {
			c.logger.Info("shutdown requested during inter-cycle wait")
			return
		}
	}
}

// initialize builds every collaborator that was not injected. A failure
// here is fatal: the controller never enters the running state.
func (c *Controller) initialize(ctx context.Context) error {
	if c.searcher == nil {
		engine, err := newSearchEngine(c.cfg.Search)
		if err != nil {
			return errors.Wrap(err, "create search engine")
		}
		c.searcher = search.NewClient(engine,
			search.WithMaxResults(c.cfg.Search.MaxResults),
			search.WithRateFloor(c.cfg.Search.RateFloor))
	}

	if c.llm == nil {
		c.llm = llm.New(c.cfg.LLM)
	}

	if c.store == nil {
		store, err := findings.NewStore(ctx, c.cfg.Storage)
		if err != nil {
			return errors.Wrap(err, "create findings store")
		}
		c.store = store
	}

	if c.seen == nil {
		seen, err := findings.NewSeen(ctx, c.cfg.Storage)
		if err != nil {
			return errors.Wrap(err, "create seen cache")
		}
		c.seen = seen
	}

	return nil
}

// Shutdown tears down held resources exactly once; repeated calls are no-ops.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.state.Store(int32(StateShuttingDown))
		c.logger.Info("shutting down")

		if c.searcher != nil {
			if err := c.searcher.Close(); err != nil {
				c.logger.Warn("close search client", zap.Error(err))
			}
		}

		if c.store != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.store.Close(closeCtx); err != nil {
				c.logger.Warn("close findings store", zap.Error(err))
			}
		}

		c.state.Store(int32(StateStopped))
		c.logger.Info("stopped")
	})
}

func (c *Controller) recordOutcome(outcome *Outcome) {
	if outcome == nil {
		return
	}

	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	if outcome.State == CycleCompleted {
		c.cyclesCompleted++
	}
	c.lastCycle = &CycleStats{
		CycleID:      outcome.CycleID,
		State:        outcome.State,
		Results:      len(outcome.Results),
		Summaries:    outcome.SummaryCount(),
		Failures:     outcome.FailureCount(),
		SkippedEmpty: outcome.SkippedEmpty,
		SkippedSeen:  outcome.SkippedSeen,
		FinishedAt:   outcome.FinishedAt,
	}
}

// sleep waits for the duration; returns false when ctx was cancelled first.
func (c *Controller) sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// newSearchEngine picks the provider engine from configuration.
func newSearchEngine(cfg config.SearchConfig) (search.Engine, error) {
	switch cfg.Provider {
	case "serpapi":
		return serpapi.NewEngine(cfg.APIKey, serpapi.WithMaxResults(cfg.MaxResults)), nil
	case "brave":
		return brave.NewEngine(cfg.APIKey, brave.WithMaxResults(cfg.MaxResults)), nil
	default:
		return nil, errors.Errorf("unknown search provider %q", cfg.Provider)
	}
}
