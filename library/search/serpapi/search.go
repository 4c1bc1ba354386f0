// Package serpapi implements a search engine backed by SerpApi's Google endpoint.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/nocturnelabs/researchbot/library/log"
	"github.com/nocturnelabs/researchbot/library/search"
)

const (
	defaultEndpoint    = "https://serpapi.com/search.json"
	httpRequestTimeout = 10 * time.Second
	// logBodyLimit caps the number of response bytes logged for debugging.
	logBodyLimit      = 4096
	serpAPIEngineName = "serpapi"
)

// Option configures the Engine instance.
type Option func(*Engine)

// WithHTTPClient overrides the HTTP client used to communicate with SerpApi.
func WithHTTPClient(client *http.Client) Option {
	return func(engine *Engine) {
		if client != nil {
			engine.client = client
		}
	}
}

// WithLogger overrides the default logger used for requests when no contextual logger is present.
func WithLogger(logger logSDK.Logger) Option {
	return func(engine *Engine) {
		if logger != nil {
			engine.logger = logger
		}
	}
}

// WithEndpoint overrides the SerpApi endpoint, primarily for testing.
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

// Engine queries SerpApi's Google Search endpoint and converts the response
// into search results. The underlying HTTP session is created lazily on the
// first request and released by Close.
type Engine struct {
	apiKey     string
	endpoint   string
	maxResults int
	logger     logSDK.Logger

	clientOnce sync.Once
	client     *http.Client
}

// NewEngine constructs a SerpApi backed search engine using the provided API key.
// The apiKey must be non-empty at search time.
func NewEngine(apiKey string, opts ...Option) *Engine {
	engine := &Engine{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   defaultEndpoint,
		maxResults: 10,
		logger:     log.Logger.Named("serpapi"),
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
	return serpAPIEngineName
}

// Search performs the SerpApi request and returns the organic results.
func (e *Engine) Search(ctx context.Context, query string) ([]search.Result, error) {
	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		return nil, errors.New("search query cannot be empty")
	}
	if e.apiKey == "" {
		return nil, errors.New("serpapi api key is not configured")
	}

	endpoint, err := url.Parse(e.endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid serpapi endpoint %q", e.endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create serpapi request")
	}

	params := req.URL.Query()
	params.Set("q", trimmedQuery)
	params.Set("api_key", e.apiKey)
	params.Set("num", strconv.Itoa(e.maxResults))
	params.Set("hl", "en")
	params.Set("gl", "us")
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")

	logger := e.logger
	if ctx != nil {
		if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
			logger = ctxLogger.Named("serpapi")
		}
	}

	if logger != nil {
		logger.Debug("outgoing http request",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.String("query", trimmedQuery),
		)
	}

	startAt := time.Now()
	resp, err := e.session().Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send serpapi request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read serpapi response body")
	}

	truncatedBody, truncated := truncateForLog(body, logBodyLimit)
	if logger != nil {
		logger.Debug("incoming http response",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncatedBody),
			zap.Bool("body_truncated", truncated),
			zap.Duration("cost", time.Since(startAt)),
			zap.String("query", trimmedQuery),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("serpapi returned status %d: %s", resp.StatusCode, truncatedBody)
	}

	var payload serpResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal serpapi response")
	}

	if payload.Error != "" {
		return nil, errors.Errorf("serpapi reported error: %s", payload.Error)
	}

	now := gutils.Clock.GetUTCNow().Unix()
	items := make([]search.Result, 0, len(payload.OrganicResults))
	for _, result := range payload.OrganicResults {
		items = append(items, search.Result{
			Title:     result.Title,
			URL:       result.Link,
			Snippet:   result.Snippet,
			Favicon:   result.Favicon,
			Timestamp: now,
		})
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

// serpResponse models the subset of fields required from the SerpApi response.
type serpResponse struct {
	OrganicResults []serpOrganicResult `json:"organic_results"`
	Error          string              `json:"error"`
}

type serpOrganicResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Favicon string `json:"favicon"`
}

// truncateForLog limits the payload logged for debugging and reports whether truncation occurred.
func truncateForLog(body []byte, limit int) (string, bool) {
	if len(body) <= limit {
		return string(body), false
	}
	return string(body[:limit]), true
}
