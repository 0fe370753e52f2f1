package main

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sternrassler/eve-market-browser/pkg/market"
	"github.com/Sternrassler/eve-market-browser/pkg/session"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.OrdersURL != "http://localhost:8080" {
		t.Errorf("Expected default orders URL, got %s", cfg.OrdersURL)
	}
	if cfg.RegionID != 10000002 {
		t.Errorf("Expected default region 10000002, got %d", cfg.RegionID)
	}
	if cfg.PageSize != 50 {
		t.Errorf("Expected default page size 50, got %d", cfg.PageSize)
	}
	if cfg.MaxRows != 250 {
		t.Errorf("Expected default max rows 250, got %d", cfg.MaxRows)
	}
	if cfg.CursorMode {
		t.Error("Expected cursor mode disabled by default")
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("Expected default cache TTL 30s, got %v", cfg.CacheTTL)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ORDERS_URL", "http://orders.internal:9000")
	t.Setenv("PAGE_SIZE", "100")
	t.Setenv("CURSOR_MODE", "true")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.OrdersURL != "http://orders.internal:9000" {
		t.Errorf("Expected overridden orders URL, got %s", cfg.OrdersURL)
	}
	if cfg.PageSize != 100 {
		t.Errorf("Expected page size 100, got %d", cfg.PageSize)
	}
	if !cfg.CursorMode {
		t.Error("Expected cursor mode enabled")
	}
}

// stubFetcher serves one fixed page so model tests have rows to move over.
type stubFetcher struct {
	items []market.Order
}

func (f stubFetcher) FetchPage(ctx context.Context, req market.PageRequest) (market.Page, error) {
	return market.Page{
		Items: f.items,
		Page:  req.Page,
		Pages: 1,
		Total: len(f.items),
	}, nil
}

func testOrders(n int) []market.Order {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	orders := make([]market.Order, n)
	for i := range orders {
		orders[i] = market.Order{
			OrderID:      int64(1000 + i),
			TypeID:       34,
			TypeName:     "Tritanium",
			RegionID:     10000002,
			RegionName:   "The Forge",
			LocationID:   60003760,
			StationName:  "Jita IV - Moon 4",
			Price:        5.50,
			VolumeRemain: 1000,
			Issued:       base.Add(-time.Duration(i) * time.Minute),
			Duration:     90,
		}
	}
	return orders
}

func loadedModel(t *testing.T, n int) model {
	t.Helper()

	coord := session.New(stubFetcher{items: testOrders(n)}, session.DefaultConfig())
	coord.SetFilters(context.Background(), market.Filters{RegionID: 10000002})

	deadline := time.Now().Add(2 * time.Second)
	for coord.Len() < n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if coord.Len() != n {
		t.Fatalf("Expected %d orders loaded, got %d", n, coord.Len())
	}

	m := newModel(coord)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 24})
	m = updated.(model)
	updated, _ = m.Update(ordersUpdated{})
	return updated.(model)
}

func TestModel_Navigation(t *testing.T) {
	m := loadedModel(t, 5)

	if m.cursor != 0 {
		t.Fatalf("Expected cursor at 0, got %d", m.cursor)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(model)
	if m.cursor != 1 {
		t.Errorf("Expected cursor at 1 after down, got %d", m.cursor)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(model)
	if m.cursor != 0 {
		t.Errorf("Expected cursor at 0 after up, got %d", m.cursor)
	}

	// Cursor does not move above the first row.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(model)
	if m.cursor != 0 {
		t.Errorf("Expected cursor pinned at 0, got %d", m.cursor)
	}
}

func TestModel_ToggleExpansion(t *testing.T) {
	m := loadedModel(t, 3)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)
	if !m.hints.IsExpanded(0) {
		t.Error("Expected row 0 expanded after enter")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)
	if m.hints.IsExpanded(0) {
		t.Error("Expected row 0 collapsed after second enter")
	}
}

func TestModel_EpochResetClearsSelection(t *testing.T) {
	m := loadedModel(t, 5)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(model)

	// Simulate a filter change: new epoch, new collection.
	m.coord.SetFilters(context.Background(), market.Filters{RegionID: 10000043})
	deadline := time.Now().Add(2 * time.Second)
	for m.coord.InFlight() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	updated, _ = m.Update(ordersUpdated{})
	m = updated.(model)

	if m.cursor != 0 {
		t.Errorf("Expected cursor reset to 0 on new epoch, got %d", m.cursor)
	}
	if m.hints.IsExpanded(1) {
		t.Error("Expected expansion state cleared on new epoch")
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := loadedModel(t, 1)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("Expected tea.Quit, got %T", msg)
	}
}

func TestModel_ViewRendersOrders(t *testing.T) {
	m := loadedModel(t, 3)

	view := m.View()
	if !strings.Contains(view, "Tritanium") {
		t.Error("Expected view to contain order type name")
	}
	if !strings.Contains(view, "end of results") {
		t.Error("Expected end-of-results status for an exhausted session")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Importing the session package registers the sync metrics.
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	promhttp.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(bodyStr, "market_rows") {
		t.Error("Expected metrics output to contain market_rows")
	}
}
