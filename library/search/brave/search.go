// Package brave implements a search engine backed by the Brave Search API.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/nocturnelabs/researchbot/library/log"
	"github.com/nocturnelabs/researchbot/library/search"
)

const (
	defaultEndpoint    = "https://api.search.brave.com/res/v1/web/search"
	httpRequestTimeout = 10 * time.Second
	braveEngineName    = "brave"
)

// Option configures the Engine instance.
type Option func(*Engine)

// WithHTTPClient overrides the HTTP client used to communicate with Brave.
func WithHTTPClient(client *http.Client) Option {
	return func(engine *Engine) {
		if client != nil {
			engine.client = client
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger logSDK.Logger) Option {
	return func(engine *Engine) {
		if logger != nil {
			engine.logger = logger
		}
	}
}

// WithEndpoint overrides the Brave endpoint, primarily for testing.
func WithEndpoint(endpoint string) Option {
	return func(engine *Engine) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			engine.endpoint = trimmed
		}
	}
}

// WithMaxResults sets the result count requested from the provider.
func WithMaxResults(limit int) Option {
	return func(engine *Engine) {
		if limit > 0 {
			engine.maxResults = limit
		}
	}
}

// Engine queries the Brave web search endpoint. The HTTP session is created
// lazily on the first request and released by Close.
type Engine struct {
	apiKey     string
	endpoint   string
	maxResults int
	logger     logSDK.Logger

	clientOnce sync.Once
	client     *http.Client
}

// NewEngine constructs a Brave backed search engine using the provided API key.
func NewEngine(apiKey string, opts ...Option) *Engine {
	engine := &Engine{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   defaultEndpoint,
		maxResults: 10,
		logger:     log.Logger.Named("brave"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}

	return engine
}

// Name returns the identifier used to distinguish the engine.
func (e *Engine) Name() string {
	return braveEngineName
}

// Search performs the Brave request and converts web results into search results.
func (e *Engine) Search(ctx context.Context, query string) ([]search.Result, error) {
	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		return nil, errors.New("search query cannot be empty")
	}
	if e.apiKey == "" {
		return nil, errors.New("brave api key is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create brave request")
	}

	params := url.Values{}
	params.Set("q", trimmedQuery)
	params.Set("count", strconv.Itoa(e.maxResults))
	req.URL.RawQuery = params.Encode()
	req.Header.Set("X-Subscription-Token", e.apiKey)
	req.Header.Set("Accept", "application/json")

	startAt := time.Now()
	resp, err := e.session().Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send brave request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read brave response body")
	}

	e.logger.Debug("incoming http response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("cost", time.Since(startAt)),
		zap.String("query", trimmedQuery),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("brave returned status %d", resp.StatusCode)
	}

	var payload braveResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal brave response")
	}

	now := gutils.Clock.GetUTCNow().Unix()
	items := make([]search.Result, 0, len(payload.Web.Results))
	for _, result := range payload.Web.Results {
		item := search.Result{
			Title:     result.Title,
			URL:       result.URL,
			Snippet:   result.Description,
			Timestamp: now,
		}
		// Brave does not return favicons; derive one from the result host.
		if parsed, err := url.Parse(result.URL); err == nil && parsed.Hostname() != "" {
			item.Favicon = fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=64", parsed.Hostname())
		}
		items = append(items, item)
	}

	return items, nil
}

// Close releases the idle connections held by the lazily created session.
func (e *Engine) Close() error {
	if e.client != nil {
		e.client.CloseIdleConnections()
	}
	return nil
}

func (e *Engine) session() *http.Client {
	e.clientOnce.Do(func() {
		if e.client == nil {
			e.client = &http.Client{Timeout: httpRequestTimeout}
		}
	})
	return e.client
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}
