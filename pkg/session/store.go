package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/eve-market-browser/pkg/market"
)

// Prometheus metrics for merge store operations.
var (
	marketMergeDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_merge_duplicates_total",
		Help: "Orders dropped as duplicates during page merges; nonzero values signal a pagination boundary contract violation server-side",
	})

	marketMergeAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_merge_added_total",
		Help: "Orders added to the collection by page merges",
	})

	marketRowsTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_rows_truncated_total",
		Help: "Orders dropped by max-rows cap enforcement",
	})

	marketRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_rows",
		Help: "Current size of the ordered order collection",
	})
)

// MergeResult reports what a single page merge did.
type MergeResult struct {
	Added      int
	Duplicates int
}

// Store is the authoritative deduplicated ordered collection for one epoch.
// Orders arrive already sorted per the boundary contract and are appended in
// arrival order; the store enforces identifier uniqueness and the row cap.
//
// Invariants, held after every operation:
//   - no order_id appears twice
//   - len(orders) == len(seen)
//   - len(orders) <= maxRows
//   - truncation never reorders retained orders
type Store struct {
	mu      sync.Mutex
	maxRows int
	orders  []market.Order
	seen    map[int64]struct{}
	logger  zerolog.Logger
}

// NewStore creates a Store capped at maxRows entries.
func NewStore(maxRows int, logger zerolog.Logger) *Store {
	if maxRows <= 0 {
		panic("session: maxRows must be positive")
	}
	return &Store{
		maxRows: maxRows,
		seen:    make(map[int64]struct{}),
		logger:  logger,
	}
}

// Reset atomically replaces the collection and the seen-id set with the
// given orders, truncating to the row cap. Used for the first page of a
// new epoch.
func (s *Store) Reset(items []market.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) > s.maxRows {
		marketRowsTruncatedTotal.Add(float64(len(items) - s.maxRows))
		items = items[:s.maxRows]
	}

	s.orders = make([]market.Order, len(items))
	copy(s.orders, items)

	s.seen = make(map[int64]struct{}, len(items))
	for _, o := range s.orders {
		s.seen[o.OrderID] = struct{}{}
	}

	marketRows.Set(float64(len(s.orders)))
}

// Merge appends incoming orders to the collection, dropping any whose
// order_id is already present. Cost is proportional to the incoming page
// size, not the collection size. After the append the collection is
// truncated from the tail to the row cap, with the dropped ids removed
// from the seen set.
//
// A nonzero duplicate count means two pages overlapped, which is a
// boundary contract violation on the server rather than a client bug.
// It is surfaced on a dedicated counter and a warn log for operators.
func (s *Store) Merge(items []market.Order) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res MergeResult
	for _, o := range items {
		if _, dup := s.seen[o.OrderID]; dup {
			res.Duplicates++
			continue
		}
		s.seen[o.OrderID] = struct{}{}
		s.orders = append(s.orders, o)
		res.Added++
	}

	if excess := len(s.orders) - s.maxRows; excess > 0 {
		for _, o := range s.orders[s.maxRows:] {
			delete(s.seen, o.OrderID)
		}
		s.orders = s.orders[:s.maxRows]
		marketRowsTruncatedTotal.Add(float64(excess))
	}

	marketMergeAddedTotal.Add(float64(res.Added))
	if res.Duplicates > 0 {
		marketMergeDuplicatesTotal.Add(float64(res.Duplicates))
		s.logger.Warn().
			Int("duplicates", res.Duplicates).
			Int("added", res.Added).
			Int("rows", len(s.orders)).
			Msg("Duplicate orders dropped during merge - possible pagination boundary violation")
	}

	marketRows.Set(float64(len(s.orders)))
	return res
}

// Len returns the current collection size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Snapshot returns a copy of the collection for rendering. The copy is
// safe to read while further merges apply.
func (s *Store) Snapshot() []market.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]market.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Contains reports whether an order id is present. Intended for tests and
// diagnostics.
func (s *Store) Contains(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[orderID]
	return ok
}
