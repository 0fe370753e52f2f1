package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/eve-market-browser/pkg/market"
)

// Prometheus metrics for fetch coordination.
var (
	marketPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_pages_fetched_total",
		Help: "Completed page fetches by result",
	}, []string{"result"})

	marketFetchesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_fetches_skipped_total",
		Help: "Page requests skipped because the same (epoch, page) was already in flight",
	})

	marketStaleResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_stale_responses_total",
		Help: "Responses discarded because their epoch was superseded by a filter change",
	})

	marketSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_sessions_total",
		Help: "Sync sessions started (one per filter change)",
	})

	marketBoundaryViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_boundary_violations_total",
		Help: "Page boundaries where the first item did not sort after the previous page's last item",
	})
)

// PageFetcher fetches a single page of orders. Both paging modes sit behind
// this one interface: offset requests carry a page number, seek requests an
// opaque cursor. Implementations must be safe for concurrent use.
type PageFetcher interface {
	FetchPage(ctx context.Context, req market.PageRequest) (market.Page, error)
}

// State is the session state for the current epoch.
type State int

const (
	// StateIdle means no fetch is running and continuation is possible
	// if HasMore reports true.
	StateIdle State = iota

	// StateLoading means a page fetch is in flight.
	StateLoading

	// StateDone means the session reached the end of its data; no further
	// auto-continuation until the next filter change.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome reports what a page request did.
type Outcome int

const (
	// OutcomeStarted means a network fetch was issued.
	OutcomeStarted Outcome = iota

	// OutcomeSkipped means the same (epoch, page key) was already in
	// flight; no network operation was issued.
	OutcomeSkipped

	// OutcomeExhausted means the session has no further pages (Done, or
	// continuation halted after a failure).
	OutcomeExhausted
)

// Config holds coordinator configuration.
type Config struct {
	// PageSize is the number of orders requested per page.
	PageSize int

	// MaxRows caps the collection size; merges beyond the cap truncate
	// from the tail.
	MaxRows int

	// CursorMode selects seek paging instead of offset paging.
	CursorMode bool
}

// DefaultConfig returns the configuration matching the orders API defaults:
// 50-row pages, 250 rows total.
func DefaultConfig() Config {
	return Config{
		PageSize: 50,
		MaxRows:  250,
	}
}

// Coordinator drives one sync session at a time. It owns the epoch counter,
// the in-flight registry, the continuation state, and the merge store; the
// hasMore flag is written only here, so the window driver and the fetch
// logic cannot disagree about continuation eligibility.
type Coordinator struct {
	fetcher PageFetcher
	cfg     Config
	logger  zerolog.Logger

	mu       sync.Mutex
	store    *Store
	epoch    uint64
	filters  market.Filters
	state    State
	hasMore  bool
	nextPage int
	cursor   string
	inflight map[string]struct{}

	// Last merged order of the current epoch, for cross-page boundary
	// verification.
	lastMerged market.Order
	haveLast   bool

	// Coalesced change notification for consumers; buffered size 1 so a
	// slow reader sees at most one pending wake-up.
	updates chan struct{}
}

// New creates a Coordinator. The fetcher must not be nil.
func New(fetcher PageFetcher, cfg Config) *Coordinator {
	if fetcher == nil {
		panic("session: fetcher cannot be nil")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 250
	}

	logger := log.With().Str("component", "sync-coordinator").Logger()

	return &Coordinator{
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   logger,
		store:    NewStore(cfg.MaxRows, logger),
		hasMore:  false,
		state:    StateIdle,
		inflight: make(map[string]struct{}),
		updates:  make(chan struct{}, 1),
	}
}

// SetFilters starts a new session for the given filter snapshot: the epoch
// is bumped exactly once, the collection and seen-id set are replaced, and
// page 1 is fetched. Responses still in flight for the previous epoch are
// discarded on arrival. The epoch bump always wins, whatever state the
// previous session was in.
func (c *Coordinator) SetFilters(ctx context.Context, f market.Filters) {
	c.mu.Lock()
	c.epoch++
	c.filters = f
	c.state = StateIdle
	c.hasMore = true
	c.nextPage = 1
	c.cursor = ""
	c.haveLast = false
	c.store.Reset(nil)
	marketSessionsTotal.Inc()

	c.logger.Info().
		Uint64("epoch", c.epoch).
		Str("filters", f.Key()).
		Msg("Starting sync session")

	req := c.nextRequestLocked()
	c.mu.Unlock()

	c.notify()
	c.start(ctx, req)
}

// RequestNext requests the next continuation page for the current epoch.
// It returns OutcomeSkipped without issuing a network operation when the
// same (epoch, page key) is already in flight, and OutcomeExhausted when
// the session has no further pages.
func (c *Coordinator) RequestNext(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.state == StateDone || !c.hasMore {
		c.mu.Unlock()
		return OutcomeExhausted
	}
	req := c.nextRequestLocked()
	c.mu.Unlock()

	return c.start(ctx, req)
}

// nextRequestLocked builds the request for the next page under the current
// continuation state. Caller holds c.mu.
func (c *Coordinator) nextRequestLocked() market.PageRequest {
	req := market.PageRequest{
		Epoch:   c.epoch,
		Size:    c.cfg.PageSize,
		Filters: c.filters,
	}
	if c.cfg.CursorMode {
		// Page stays 0 in cursor mode; an empty cursor means first page.
		req.Cursor = c.cursor
	} else {
		req.Page = c.nextPage
	}
	return req
}

// start registers the request in the in-flight registry and launches the
// fetch, enforcing single-flight per (epoch, page key).
func (c *Coordinator) start(ctx context.Context, req market.PageRequest) Outcome {
	key := registryKey(req)

	c.mu.Lock()
	if req.Epoch != c.epoch {
		// Filters changed between building the request and starting it.
		c.mu.Unlock()
		return OutcomeSkipped
	}
	if _, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		marketFetchesSkippedTotal.Inc()
		c.logger.Debug().
			Str("key", key).
			Msg("Page fetch already in flight - skipping")
		return OutcomeSkipped
	}
	c.inflight[key] = struct{}{}
	c.state = StateLoading
	c.mu.Unlock()

	c.notify()

	go func() {
		page, err := c.fetcher.FetchPage(ctx, req)
		c.complete(req, page, err)
	}()

	return OutcomeStarted
}

// complete consumes a fetch result. The in-flight key is cleared whatever
// happened; the epoch check runs before anything else so that stale
// responses cannot touch the collection, the seen set, or hasMore.
func (c *Coordinator) complete(req market.PageRequest, page market.Page, err error) {
	key := registryKey(req)

	c.mu.Lock()
	delete(c.inflight, key)

	if req.Epoch != c.epoch {
		// A filter change superseded this request while it was in
		// flight. Not an error: drop silently, trace only.
		c.mu.Unlock()
		marketStaleResponsesTotal.Inc()
		c.logger.Debug().
			Uint64("response_epoch", req.Epoch).
			Str("key", key).
			Msg("Discarding stale response")
		return
	}

	if err != nil {
		// A single failed continuation halts auto-fetch for this epoch
		// but keeps the merged data on screen; the caller may start a
		// fresh session to retry.
		c.hasMore = false
		c.state = StateIdle
		c.mu.Unlock()
		marketPagesFetchedTotal.WithLabelValues("failure").Inc()
		c.logger.Warn().
			Err(err).
			Str("key", key).
			Msg("Page fetch failed - halting continuation")
		c.notify()
		return
	}

	replace := req.Cursor == "" && req.Page <= 1

	if c.haveLast && len(page.Items) > 0 && !replace {
		if verr := market.VerifyBoundary(c.lastMerged, page.Items[0]); verr != nil {
			marketBoundaryViolationsTotal.Inc()
			c.logger.Warn().
				Err(verr).
				Str("key", key).
				Msg("Pagination boundary violation detected")
		}
	}

	var res MergeResult
	if replace {
		c.store.Reset(page.Items)
		res.Added = c.store.Len()
	} else {
		res = c.store.Merge(page.Items)
	}

	if len(page.Items) > 0 {
		c.lastMerged = page.Items[len(page.Items)-1]
		c.haveLast = true
	}

	// Continuation eligibility uses the post-merge collection size, so the
	// row cap is honored exactly at the boundary.
	rows := c.store.Len()
	if c.cfg.CursorMode {
		c.cursor = page.NextCursor
		c.hasMore = page.NextCursor != "" && rows < c.cfg.MaxRows
	} else {
		c.nextPage = req.Page + 1
		c.hasMore = req.Page < page.Pages && rows < c.cfg.MaxRows
	}

	if c.hasMore {
		c.state = StateIdle
	} else {
		c.state = StateDone
	}

	c.logger.Debug().
		Str("key", key).
		Int("added", res.Added).
		Int("duplicates", res.Duplicates).
		Int("rows", rows).
		Bool("has_more", c.hasMore).
		Msg("Page merged")
	c.mu.Unlock()

	marketPagesFetchedTotal.WithLabelValues("success").Inc()
	c.notify()
}

// registryKey scopes the page key by epoch; the page number alone is not
// unique across epochs.
func registryKey(req market.PageRequest) string {
	return fmt.Sprintf("%d/%s", req.Epoch, req.PageKey())
}

// notify wakes consumers without blocking; pending wake-ups coalesce.
func (c *Coordinator) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Updates returns the coalesced change-notification channel. One receive
// may cover several state changes; consumers re-read the snapshot.
func (c *Coordinator) Updates() <-chan struct{} {
	return c.updates
}

// Store exposes the underlying merge store for diagnostics and tests.
func (c *Coordinator) Store() *Store {
	return c.store
}

// Snapshot returns a copy of the current ordered collection.
func (c *Coordinator) Snapshot() []market.Order {
	return c.store.Snapshot()
}

// Len returns the current collection size.
func (c *Coordinator) Len() int {
	return c.store.Len()
}

// HasMore reports whether further continuation pages are known to exist.
func (c *Coordinator) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// InFlight reports whether any fetch is currently outstanding for the
// current epoch.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight) > 0
}

// State returns the session state for the current epoch.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Epoch returns the current epoch counter.
func (c *Coordinator) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Filters returns the active filter snapshot.
func (c *Coordinator) Filters() market.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}
