package search

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	appLog "github.com/nocturnelabs/researchbot/library/log"
)

const (
	defaultMaxResults = 10
	defaultRateFloor  = time.Second
)

// ClientOption customises a Client during construction.
type ClientOption func(*Client)

// WithLogger overrides the fallback logger.
func WithLogger(logger logSDK.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxResults caps how many results a single query may return.
func WithMaxResults(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.maxResults = limit
		}
	}
}

// WithRateFloor adjusts the minimum interval between outbound provider requests.
func WithRateFloor(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.rateFloor = interval
		}
	}
}

// Client wraps a single search Engine behind a rate floor. Provider failures
// degrade to an empty result set so a broken search never aborts the caller.
//
// The rate token is owned by this instance: two independently constructed
// clients gate their requests independently.
type Client struct {
	engine     Engine
	maxResults int
	rateFloor  time.Duration
	logger     logSDK.Logger

	// gate serializes outbound requests; lastRequest records the completion
	// time of the most recent provider call.
	gate        sync.Mutex
	lastRequest time.Time
}

// NewClient constructs a Client around the provided engine.
func NewClient(engine Engine, opts ...ClientOption) *Client {
	client := &Client{
		engine:     engine,
		maxResults: defaultMaxResults,
		rateFloor:  defaultRateFloor,
		logger:     appLog.Logger.Named("search"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client
}

// Search queries the engine and returns at most maxResults entries in
// provider rank order. Blank queries and provider failures both yield an
// empty slice; the latter is logged as an error, the former as a warning.
// No network call is issued for a blank query.
func (c *Client) Search(ctx context.Context, query string) []Result {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		c.logger.Warn("ignore blank search query")
		return nil
	}

	c.gate.Lock()
	defer c.gate.Unlock()

	if !c.waitRateFloor(ctx) {
		c.logger.Warn("search cancelled while waiting for rate floor",
			zap.String("query", trimmed))
		return nil
	}

	startAt := time.Now()
	items, err := c.engine.Search(ctx, trimmed)
	c.lastRequest = time.Now()
	if err != nil {
		c.logger.Error("search degraded to empty result set",
			zap.String("engine", c.engine.Name()),
			zap.String("query", trimmed),
			zap.Duration("cost", time.Since(startAt)),
			zap.Error(err))
		return nil
	}

	if len(items) > c.maxResults {
		items = items[:c.maxResults]
	}

	c.logger.Info("search finished",
		zap.String("engine", c.engine.Name()),
		zap.String("query", trimmed),
		zap.Int("results", len(items)),
		zap.Duration("cost", time.Since(startAt)))
	return normalize(items)
}

// BatchSearch runs independent searches for every query. The calls fan out
// concurrently but still serialize against the shared rate token, so no two
// outbound requests are closer together than the rate floor.
func (c *Client) BatchSearch(ctx context.Context, queries []string) map[string][]Result {
	results := make(map[string][]Result, len(queries))
	if len(queries) == 0 {
		return results
	}

	var mu sync.Mutex
	var pool errgroup.Group
	for _, query := range queries {
		pool.Go(func() error {
			items := c.Search(ctx, query)
			mu.Lock()
			results[query] = items
			mu.Unlock()
			return nil
		})
	}

	// Search never propagates provider failures, so the pool cannot fail.
	_ = pool.Wait()
	return results
}

// Close releases the engine's network session. Idempotent.
func (c *Client) Close() error {
	return c.engine.Close()
}

// waitRateFloor blocks until the rate floor has elapsed since the last
// request, or the context is cancelled. Callers must hold c.gate.
func (c *Client) waitRateFloor(ctx context.Context) bool {
	if c.lastRequest.IsZero() {
		return true
	}

	wait := c.rateFloor - time.Since(c.lastRequest)
	if wait <= 0 {
		return true
	}

	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	}
}

// normalize fills derivable fields the provider left empty. A result
// missing its URL is kept as-is rather than rejected.
func normalize(items []Result) []Result {
	for i := range items {
		if items[i].Source == "" && items[i].URL != "" {
			if parsed, err := url.Parse(items[i].URL); err == nil {
				items[i].Source = parsed.Hostname()
			}
		}
	}
	return items
}
