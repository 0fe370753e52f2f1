package market

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Filters is an immutable snapshot of the query parameters that define what
// a "page" means. Changing any field starts a new sync session (epoch); the
// engine never mutates a Filters value after it has been handed over.
//
// Location filters are mutually exclusive with precedence
// station > system > region: if StationID is set the others are ignored,
// matching the server's filter resolution.
type Filters struct {
	TypeID        int32
	MarketGroupID int32
	RegionID      int32
	SystemID      int32
	StationID     int64
	Search        string

	// IsBuyOrder filters by order side; nil means both sides.
	IsBuyOrder *bool
}

// Query renders the filter snapshot as URL query parameters for the
// orders endpoint. Zero-valued fields are omitted.
func (f Filters) Query() url.Values {
	v := url.Values{}

	if f.TypeID != 0 {
		v.Set("type_id", strconv.FormatInt(int64(f.TypeID), 10))
	}
	if f.MarketGroupID != 0 {
		v.Set("market_group_id", strconv.FormatInt(int64(f.MarketGroupID), 10))
	}

	switch {
	case f.StationID != 0:
		v.Set("station_id", strconv.FormatInt(f.StationID, 10))
	case f.SystemID != 0:
		v.Set("system_id", strconv.FormatInt(int64(f.SystemID), 10))
	case f.RegionID != 0:
		v.Set("region_id", strconv.FormatInt(int64(f.RegionID), 10))
	}

	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.IsBuyOrder != nil {
		v.Set("is_buy_order", strconv.FormatBool(*f.IsBuyOrder))
	}

	return v
}

// Key returns a canonical string identifying this filter snapshot.
// It is stable across equal snapshots and is used for cache keys and
// structured log fields.
func (f Filters) Key() string {
	parts := make([]string, 0, 6)

	if f.TypeID != 0 {
		parts = append(parts, fmt.Sprintf("type=%d", f.TypeID))
	}
	if f.MarketGroupID != 0 {
		parts = append(parts, fmt.Sprintf("group=%d", f.MarketGroupID))
	}
	switch {
	case f.StationID != 0:
		parts = append(parts, fmt.Sprintf("station=%d", f.StationID))
	case f.SystemID != 0:
		parts = append(parts, fmt.Sprintf("system=%d", f.SystemID))
	case f.RegionID != 0:
		parts = append(parts, fmt.Sprintf("region=%d", f.RegionID))
	}
	if f.Search != "" {
		parts = append(parts, "search="+url.QueryEscape(f.Search))
	}
	if f.IsBuyOrder != nil {
		parts = append(parts, fmt.Sprintf("buy=%t", *f.IsBuyOrder))
	}

	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ",")
}

// Equal reports whether two filter snapshots describe the same query.
func (f Filters) Equal(other Filters) bool {
	if f.TypeID != other.TypeID ||
		f.MarketGroupID != other.MarketGroupID ||
		f.RegionID != other.RegionID ||
		f.SystemID != other.SystemID ||
		f.StationID != other.StationID ||
		f.Search != other.Search {
		return false
	}
	if (f.IsBuyOrder == nil) != (other.IsBuyOrder == nil) {
		return false
	}
	if f.IsBuyOrder != nil && *f.IsBuyOrder != *other.IsBuyOrder {
		return false
	}
	return true
}

// PageRequest identifies one logical page fetch. Requests are keyed by
// (Epoch, page key); the page number alone is not unique across epochs.
// Exactly one of Page or Cursor is meaningful: offset mode uses Page (>= 1),
// cursor mode uses Cursor (empty means first page).
type PageRequest struct {
	Epoch   uint64
	Page    int
	Size    int
	Cursor  string
	Filters Filters
}

// PageKey returns the registry key for this request within its epoch.
func (r PageRequest) PageKey() string {
	if r.Cursor != "" {
		return "cursor:" + r.Cursor
	}
	return "page:" + strconv.Itoa(r.Page)
}
