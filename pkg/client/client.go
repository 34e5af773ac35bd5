// Package client provides the dataset-server HTTP client with optional
// Redis caching, retry and Prometheus instrumentation.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/hf-rowsite/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultAPIURL is the public dataset-server rows endpoint.
const DefaultAPIURL = "https://datasets-server.huggingface.co/rows"

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Indexer)"

// Prometheus metrics for dataset-server requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rowsite_requests_total",
		Help: "Total dataset-server requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rowsite_request_duration_seconds",
		Help:    "Dataset-server request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rowsite_errors_total",
		Help: "Total dataset-server errors by class",
	}, []string{"class"})
)

// Client fetches rows from the dataset-server.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIURL is the full rows endpoint URL.
	APIURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Retry controls retries of 5xx, 429 and network failures.
	// The default is a single attempt.
	Retry RetryConfig

	// Redis enables the response cache when set.
	Redis *redis.Client

	// CacheTTL applies to responses without caching headers.
	CacheTTL time.Duration

	// Transport overrides the HTTP transport (tracing, tests).
	Transport http.RoundTripper
}

// DefaultConfig returns a configuration for the public dataset-server.
func DefaultConfig(userAgent string) Config {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return Config{
		APIURL:    DefaultAPIURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
		CacheTTL:  cache.DefaultTTL,
	}
}

// New creates a new dataset-server client.
func New(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return nil, fmt.Errorf("api url must be http(s) (got %q)", cfg.APIURL)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	logger := log.With().Str("component", "rows-client").Logger()

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		cache:  cacheManager,
		config: cfg,
		logger: logger,
	}, nil
}

// Do performs an HTTP request with caching, retry and error classification.
// A non-2xx final status is returned as *APIError; the response is closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := requestKey(req)

	if c.cache != nil && req.Method == http.MethodGet {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("key", cacheKey.String()).Msg("Cache hit")
			requestsTotal.WithLabelValues("cache_hit").Inc()
			return cache.EntryToResponse(entry, req), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("key", cacheKey.String()).Msg("Cache get error")
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", req.URL.String()).
		Str("method", req.Method).
		Msg("Executing dataset-server request")

	var resp *http.Response
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues("network_error").Inc()
			return &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				URL:        req.URL.String(),
				Err:        reqErr,
			}
		}

		requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		if class := classify(resp.StatusCode, nil); class != "" {
			errorsTotal.WithLabelValues(string(class)).Inc()
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: class,
				Message:    errorMessage(resp),
				URL:        req.URL.String(),
			}
			resp.Body.Close()
			resp = nil

			c.logger.Warn().
				Int("status", apiErr.StatusCode).
				Str("error_class", string(class)).
				Str("url", apiErr.URL).
				Msg("Dataset-server request error")
			return apiErr
		}

		return nil
	}, classOf)
	if err != nil {
		c.logger.Error().Err(err).Str("url", req.URL.String()).Msg("Dataset-server request failed")
		return nil, err
	}

	if c.cache != nil && req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.cache.FallbackTTL())
		if err != nil {
			resp.Body.Close()
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassNetwork,
				Message:    "read response body",
				URL:        req.URL.String(),
				Err:        err,
			}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().Str("key", cacheKey.String()).Dur("ttl", entry.TTL()).Msg("Cached response")
		}
	}

	return resp, nil
}

// requestKey identifies req in the response cache.
func requestKey(req *http.Request) cache.Key {
	return cache.Key{
		Host:        req.URL.Host,
		Endpoint:    req.URL.Path,
		QueryParams: req.URL.Query(),
	}
}

// errorMessage reads the dataset-server {"error": "..."} body, falling back to the status text.
func errorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			return payload.Error
		}
	}
	return resp.Status
}

// Get performs a GET against the configured rows endpoint with the query's parameters.
func (c *Client) Get(ctx context.Context, q RowsQuery) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.APIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = q.Values().Encode()

	return c.Do(req)
}

// Rows fetches and decodes one window of rows.
func (c *Client) Rows(ctx context.Context, q RowsQuery) (*RowsResponse, error) {
	if err := q.Dataset.Validate(); err != nil {
		return nil, err
	}
	if q.Offset < 0 || q.Length < 0 {
		return nil, fmt.Errorf("invalid window offset=%d length=%d", q.Offset, q.Length)
	}

	resp, err := c.Get(ctx, q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out RowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	c.logger.Debug().
		Str("dataset", q.Dataset.Name).
		Int("offset", q.Offset).
		Int("length", q.Length).
		Int("rows", len(out.Rows)).
		Msg("Rows fetched")

	return &out, nil
}

// Cache returns the response cache, nil when disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
