package market

import (
	"errors"
	"fmt"
)

// The pagination boundary contract: the orders API must return results
// sorted by issued descending, then order_id ascending. Sorting by issued
// alone is not sufficient: two orders sharing a timestamp could swap
// relative positions between requests, letting an order appear in two
// pages or in neither. The helpers here validate that a response actually
// honors the contract; violations are diagnostics (the dedup store
// recovers locally), not hard failures.

// ErrOrderViolation indicates a page whose items are not strictly ordered
// per the boundary contract.
var ErrOrderViolation = errors.New("page order violates boundary contract")

// VerifyPageOrder checks that items within one page are strictly ordered
// by (issued desc, order_id asc). A strict order implies no duplicate
// order_ids within the page.
func VerifyPageOrder(items []Order) error {
	for i := 1; i < len(items); i++ {
		if !Less(items[i-1], items[i]) {
			return fmt.Errorf("%w: index %d (order %d) does not sort after index %d (order %d)",
				ErrOrderViolation, i, items[i].OrderID, i-1, items[i-1].OrderID)
		}
	}
	return nil
}

// VerifyBoundary checks that the first item of a continuation page sorts
// strictly after the last item of the previous page. A backward jump
// across the boundary means the server reordered between requests and
// duplicates are likely to follow.
func VerifyBoundary(prevLast, first Order) error {
	if !Less(prevLast, first) {
		return fmt.Errorf("%w: page boundary jumped backward (order %d before order %d)",
			ErrOrderViolation, first.OrderID, prevLast.OrderID)
	}
	return nil
}
