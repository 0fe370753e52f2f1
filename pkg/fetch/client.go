// Package fetch provides the HTTP page fetcher for the orders API, with
// client-side rate limiting, bounded retry with class-specific backoff,
// and an optional read-through page cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/eve-market-browser/pkg/market"
	"github.com/Sternrassler/eve-market-browser/pkg/pagecache"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Prometheus metrics for fetch operations.
var (
	marketRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_requests_total",
		Help: "Total orders API requests by status",
	}, []string{"status"})

	marketRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "market_request_duration_seconds",
		Help:    "Orders API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	marketFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_fetch_errors_total",
		Help: "Total orders API errors by class",
	}, []string{"class"})

	marketPageOrderViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_page_order_violations_total",
		Help: "Pages whose items were not ordered per the boundary contract",
	})
)

// Config holds the fetcher configuration.
type Config struct {
	// BaseURL of the orders API, without trailing slash.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// RateLimit is the sustained request rate (requests per second);
	// Burst the short-term allowance.
	RateLimit float64
	Burst     int

	// RequestTimeout bounds one HTTP attempt.
	RequestTimeout time.Duration

	// Cache is the optional read-through page cache; nil disables caching.
	Cache *pagecache.Manager
}

// DefaultConfig returns a safe default configuration for the given API base.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      "eve-market-browser/0.1.0",
		RateLimit:      10,
		Burst:          5,
		RequestTimeout: 30 * time.Second,
	}
}

// Client fetches order pages over HTTP. It implements the coordinator's
// PageFetcher contract and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *pagecache.Manager
	config     Config
	logger     zerolog.Logger
}

// New creates a fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		cache:   cfg.Cache,
		config:  cfg,
		logger:  log.With().Str("component", "fetch-client").Logger(),
	}, nil
}

// FetchPage fetches one page of orders. The request is paced by the rate
// limiter, served from the page cache when possible, retried with backoff
// on transient failures, and validated against the pagination boundary
// contract before being returned.
func (c *Client) FetchPage(ctx context.Context, req market.PageRequest) (market.Page, error) {
	startTime := time.Now()
	defer func() {
		marketRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := pagecache.Key{
		FiltersKey: req.Filters.Key(),
		PageKey:    req.PageKey(),
		Size:       req.Size,
	}

	if c.cache != nil {
		payload, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			var page market.Page
			if uerr := json.Unmarshal(payload, &page); uerr == nil {
				c.logger.Debug().
					Str("key", cacheKey.String()).
					Msg("Page served from cache")
				return page, nil
			}
			// Corrupted entry: fall through to a network fetch.
			_ = c.cache.Delete(ctx, cacheKey)
		} else if err != pagecache.ErrCacheMiss {
			c.logger.Warn().Err(err).Msg("Page cache get error")
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return market.Page{}, fmt.Errorf("rate limit wait: %w", err)
	}

	var body []byte
	fetchErr := retryWithBackoff(ctx, func() error {
		var err error
		body, err = c.doRequest(ctx, req)
		return err
	}, classify)

	if fetchErr != nil {
		return market.Page{}, fetchErr
	}

	var page market.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return market.Page{}, fmt.Errorf("decode page: %w", err)
	}

	if err := market.VerifyPageOrder(page.Items); err != nil {
		// The dedup store recovers from overlap; record the violation
		// for operators and serve the page anyway.
		marketPageOrderViolationsTotal.Inc()
		c.logger.Warn().
			Err(err).
			Str("key", cacheKey.String()).
			Msg("Page order violates boundary contract")
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache page")
		}
	}

	return page, nil
}

// doRequest performs a single HTTP attempt.
func (c *Client) doRequest(ctx context.Context, req market.PageRequest) ([]byte, error) {
	q := req.Filters.Query()
	if req.Page >= 1 {
		q.Set("page", strconv.Itoa(req.Page))
	} else {
		// Cursor mode; an empty value requests the first page.
		q.Set("cursor", req.Cursor)
	}
	q.Set("size", strconv.Itoa(req.Size))

	url := c.config.BaseURL + "/orders?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		marketFetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		marketRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &FetchError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	marketRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode)
		marketFetchErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Orders API request error")
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		marketFetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &FetchError{Class: ErrorClassNetwork, Message: "read body", Err: err}
	}

	return body, nil
}

// classifyStatus categorizes an HTTP status for retry and observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classify maps a fetch error to its class for the retry schedule.
func classify(err error) ErrorClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ErrorClassNetwork
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
