package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func orderAt(id int64, issued time.Time) Order {
	return Order{OrderID: id, Issued: issued}
}

func TestLess_TotalOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name string
		a, b Order
		want bool
	}{
		{"newer issued sorts first", orderAt(2, now), orderAt(1, earlier), true},
		{"older issued sorts last", orderAt(1, earlier), orderAt(2, now), false},
		{"equal issued, lower id first", orderAt(1, now), orderAt(2, now), true},
		{"equal issued, higher id last", orderAt(2, now), orderAt(1, now), false},
		{"identical order is not less", orderAt(1, now), orderAt(1, now), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Less(tt.a, tt.b))
		})
	}
}

func TestVerifyPageOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	valid := []Order{
		orderAt(5, now),
		orderAt(9, now),
		orderAt(1, now.Add(-time.Minute)),
	}
	require.NoError(t, VerifyPageOrder(valid))
	require.NoError(t, VerifyPageOrder(nil))
	require.NoError(t, VerifyPageOrder(valid[:1]))

	swapped := []Order{valid[1], valid[0], valid[2]}
	err := VerifyPageOrder(swapped)
	require.ErrorIs(t, err, ErrOrderViolation)

	duplicated := []Order{valid[0], valid[0]}
	require.ErrorIs(t, VerifyPageOrder(duplicated), ErrOrderViolation)
}

func TestVerifyBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prevLast := orderAt(10, now)
	require.NoError(t, VerifyBoundary(prevLast, orderAt(11, now)))
	require.NoError(t, VerifyBoundary(prevLast, orderAt(3, now.Add(-time.Second))))

	// Same order appearing again across the boundary is the documented
	// overlapping-pagination failure mode.
	require.ErrorIs(t, VerifyBoundary(prevLast, prevLast), ErrOrderViolation)
	require.ErrorIs(t, VerifyBoundary(prevLast, orderAt(4, now)), ErrOrderViolation)
}

func TestCursorRoundTrip(t *testing.T) {
	issued := time.Date(2026, 2, 27, 8, 30, 0, 123456789, time.UTC)
	last := Order{OrderID: 6291377, Issued: issued}

	cursor := EncodeCursor(last)
	require.NotEmpty(t, cursor)

	gotIssued, gotID, err := DecodeCursor(cursor)
	require.NoError(t, err)
	require.Equal(t, last.OrderID, gotID)
	require.True(t, gotIssued.Equal(issued))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, _, err := DecodeCursor("not-base64!!!")
	require.Error(t, err)

	_, _, err = DecodeCursor("bm90LWpzb24")
	require.Error(t, err)
}

func TestAfter(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Strictly after the boundary: older issue time, or same time with
	// a higher order id.
	require.True(t, After(orderAt(1, issued.Add(-time.Second)), issued, 10))
	require.True(t, After(orderAt(11, issued), issued, 10))

	require.False(t, After(orderAt(10, issued), issued, 10))
	require.False(t, After(orderAt(9, issued), issued, 10))
	require.False(t, After(orderAt(99, issued.Add(time.Second)), issued, 10))
}
