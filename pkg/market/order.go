// Package market defines the domain model shared by the sync engine:
// orders, filter snapshots, page envelopes, the cursor codec, and the
// pagination boundary contract the orders API must uphold.
package market

import (
	"time"
)

// Order is one market order row as returned by the orders API.
// OrderID is globally unique; Issued is the primary ordering key.
// All other fields are opaque payload as far as the sync engine is
// concerned and are passed through unchanged.
type Order struct {
	OrderID      int64     `json:"order_id"`
	TypeID       int32     `json:"type_id"`
	TypeName     string    `json:"type_name"`
	RegionID     int32     `json:"region_id"`
	RegionName   string    `json:"region_name"`
	LocationID   int64     `json:"location_id"`
	StationName  string    `json:"station_name"`
	Price        float64   `json:"price"`
	VolumeRemain int64     `json:"volume_remain"`
	IsBuyOrder   bool      `json:"is_buy_order"`
	Issued       time.Time `json:"issued"`
	Duration     int32     `json:"duration"`
}

// Less reports whether a sorts strictly before b under the wire ordering:
// issued descending, then order_id ascending. The order_id tiebreaker makes
// the order total even when two orders share an issue timestamp, which is
// what keeps incremental paging free of boundary drift (see contract.go).
func Less(a, b Order) bool {
	if !a.Issued.Equal(b.Issued) {
		return a.Issued.After(b.Issued)
	}
	return a.OrderID < b.OrderID
}

// Page is one page of orders as returned by the orders API.
// Offset mode fills Page/Pages/Total; cursor mode fills NextCursor
// (empty means no more pages). Items are ordered per the boundary contract.
type Page struct {
	Items      []Order `json:"items"`
	Page       int     `json:"page"`
	Pages      int     `json:"pages"`
	Total      int     `json:"total"`
	NextCursor string  `json:"next_cursor,omitempty"`
}
