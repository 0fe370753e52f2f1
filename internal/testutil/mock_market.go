// Package testutil provides testing utilities for the market browser.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Sternrassler/eve-market-browser/pkg/market"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MockMarket is a configurable in-memory orders API for testing. It serves
// GET /orders in both offset and cursor mode over a mutable dataset kept
// sorted per the pagination boundary contract, so tests can insert orders
// between two page requests and observe boundary-drift behavior.
type MockMarket struct {
	server *httptest.Server

	mu     sync.Mutex
	orders []market.Order

	// Failure injection: the next failRemaining requests answer failStatus.
	failRemaining int
	failStatus    int

	// Tracking
	RequestCount int
	PageRequests map[string]int
}

// NewMockMarket creates a started mock server with an empty dataset.
func NewMockMarket() *MockMarket {
	m := &MockMarket{
		PageRequests: make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handleOrders))
	return m
}

// URL returns the mock server's base URL.
func (m *MockMarket) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockMarket) Close() {
	m.server.Close()
}

// Seed replaces the dataset. Orders are sorted into contract order.
func (m *MockMarket) Seed(orders []market.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append([]market.Order(nil), orders...)
	sort.Slice(m.orders, func(i, j int) bool {
		return market.Less(m.orders[i], m.orders[j])
	})
}

// Insert adds one order, keeping contract order. Inserting between two
// page requests simulates the dataset mutating mid-session.
func (m *MockMarket) Insert(o market.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.orders), func(i int) bool {
		return !market.Less(m.orders[i], o)
	})
	m.orders = append(m.orders, market.Order{})
	copy(m.orders[i+1:], m.orders[i:])
	m.orders[i] = o
}

// FailNext makes the next n requests answer with the given HTTP status.
func (m *MockMarket) FailNext(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRemaining = n
	m.failStatus = status
}

// Requests returns how many times the given page key was requested.
func (m *MockMarket) Requests(pageKey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PageRequests[pageKey]
}

func (m *MockMarket) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/orders" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	size, _ := strconv.Atoi(q.Get("size"))
	if size <= 0 {
		size = 50
	}
	cursor := q.Get("cursor")
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}

	pageKey := "page:" + strconv.Itoa(page)
	if q.Has("cursor") {
		pageKey = "cursor:" + cursor
	}

	m.mu.Lock()
	m.RequestCount++
	m.PageRequests[pageKey]++

	if m.failRemaining > 0 {
		m.failRemaining--
		status := m.failStatus
		m.mu.Unlock()
		http.Error(w, http.StatusText(status), status)
		return
	}

	filtered := m.filterLocked(q)
	m.mu.Unlock()

	var envelope market.Page
	if cursor != "" || q.Has("cursor") {
		var ok bool
		envelope, ok = cursorPage(filtered, cursor, size)
		if !ok {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
	} else {
		envelope = offsetPage(filtered, page, size)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope)
}

// filterLocked applies the subset of filters the engine tests exercise.
// Caller holds m.mu.
func (m *MockMarket) filterLocked(q map[string][]string) []market.Order {
	get := func(key string) string {
		if vs := q[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	out := make([]market.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if v := get("type_id"); v != "" {
			if id, _ := strconv.Atoi(v); int32(id) != o.TypeID {
				continue
			}
		}
		if v := get("region_id"); v != "" {
			if id, _ := strconv.Atoi(v); int32(id) != o.RegionID {
				continue
			}
		}
		if v := get("is_buy_order"); v != "" {
			if buy, _ := strconv.ParseBool(v); buy != o.IsBuyOrder {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}

func offsetPage(all []market.Order, page, size int) market.Page {
	total := len(all)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return market.Page{
		Items: all[start:end],
		Page:  page,
		Pages: pages,
		Total: total,
	}
}

func cursorPage(all []market.Order, cursor string, size int) (market.Page, bool) {
	start := 0
	if cursor != "" {
		issued, orderID, err := market.DecodeCursor(cursor)
		if err != nil {
			return market.Page{}, false
		}
		start = sort.Search(len(all), func(i int) bool {
			return market.After(all[i], issued, orderID)
		})
	}

	end := start + size
	if end > len(all) {
		end = len(all)
	}
	items := all[start:end]

	var next string
	if end < len(all) && len(items) > 0 {
		next = market.EncodeCursor(items[len(items)-1])
	}

	return market.Page{Items: items, NextCursor: next}, true
}

// GenOrders builds n orders with descending issue times starting at base,
// ids starting at firstID. The result honors the wire ordering.
func GenOrders(firstID int64, n int, base time.Time) []market.Order {
	out := make([]market.Order, n)
	for i := range out {
		out[i] = market.Order{
			OrderID:      firstID + int64(i),
			TypeID:       34,
			TypeName:     "Tritanium",
			RegionID:     10000002,
			RegionName:   "The Forge",
			LocationID:   60003760,
			StationName:  "Jita IV - Moon 4",
			Price:        5.5 + float64(i),
			VolumeRemain: 1000,
			Issued:       base.Add(-time.Duration(i) * time.Minute),
			Duration:     90,
		}
	}
	return out
}
