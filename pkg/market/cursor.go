package market

import (
	"encoding/base64"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var cursorJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// cursorPayload is the decoded form of a continuation cursor: the
// (primary key, tiebreaker) pair of the last order returned by the
// previous page. The encoding is opaque to clients.
type cursorPayload struct {
	Issued  int64 `json:"i"` // unix nanoseconds
	OrderID int64 `json:"o"`
}

// EncodeCursor builds an opaque continuation cursor from the last order
// of a page. The next page starts strictly after this position in the
// (issued desc, order_id asc) total order, which makes seek paging immune
// to offset drift while the underlying dataset mutates.
func EncodeCursor(last Order) string {
	raw, err := cursorJSON.Marshal(cursorPayload{
		Issued:  last.Issued.UnixNano(),
		OrderID: last.OrderID,
	})
	if err != nil {
		// cursorPayload contains only integers; Marshal cannot fail.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor back into the boundary position it
// encodes. An empty cursor is invalid here; callers treat empty as
// "first page" before reaching the codec.
func DecodeCursor(cursor string) (issued time.Time, orderID int64, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("decode cursor: %w", err)
	}

	var p cursorPayload
	if err := cursorJSON.Unmarshal(raw, &p); err != nil {
		return time.Time{}, 0, fmt.Errorf("decode cursor: %w", err)
	}

	return time.Unix(0, p.Issued).UTC(), p.OrderID, nil
}

// After reports whether order o sorts strictly after the boundary position
// (issued, orderID) in the wire ordering. Servers implementing cursor mode
// use this to select the next page.
func After(o Order, issued time.Time, orderID int64) bool {
	if !o.Issued.Equal(issued) {
		return o.Issued.Before(issued)
	}
	return o.OrderID > orderID
}
