package window

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDriver(overscan, threshold int) (*Driver, *HeightHints) {
	hints := NewHeightHints(10, 20)
	return NewDriver(hints, overscan, threshold), hints
}

func TestLayout_UniformRows(t *testing.T) {
	d, _ := newTestDriver(0, 5)

	// 100 rows of height 10, viewport 50 at offset 0: rows 0..4 visible.
	r := d.Layout(100, 50, 0)
	require.Equal(t, 0, r.Start)
	require.Equal(t, 5, r.End)
	require.Equal(t, 0, r.StartOffset)
	require.Equal(t, 1000, r.TotalSize)

	// Scrolled to offset 105: row 10 is half visible, rows 10..15.
	r = d.Layout(100, 50, 105)
	require.Equal(t, 10, r.Start)
	require.Equal(t, 16, r.End)
	require.Equal(t, 100, r.StartOffset)
}

func TestLayout_Overscan(t *testing.T) {
	d, _ := newTestDriver(3, 5)

	r := d.Layout(100, 50, 105)
	require.Equal(t, 7, r.Start)
	require.Equal(t, 19, r.End)
	require.Equal(t, 70, r.StartOffset)

	// Overscan clamps at both collection edges.
	r = d.Layout(100, 50, 0)
	require.Equal(t, 0, r.Start)
	require.Equal(t, 0, r.StartOffset)

	r = d.Layout(10, 50, 80)
	require.Equal(t, 10, r.End)
}

func TestLayout_ExpandedRowShiftsOffsets(t *testing.T) {
	d, hints := newTestDriver(0, 5)

	hints.SetExpanded(2, true) // row 2 is now height 30

	r := d.Layout(100, 50, 0)
	require.Equal(t, 0, r.Start)
	// Heights 10,10,30 fill the viewport at row 3's top (offset 50).
	require.Equal(t, 3, r.End)
	require.Equal(t, 1020, r.TotalSize)

	// Everything after row 2 shifted down by 20.
	r = d.Layout(100, 50, 125)
	require.Equal(t, 10, r.Start)
	require.Equal(t, 120, r.StartOffset)
}

func TestLayout_MeasuredOverrideWins(t *testing.T) {
	d, hints := newTestDriver(0, 5)

	hints.SetExpanded(0, true)
	require.Equal(t, 30, hints.Estimate(0))

	// Post-render measurement corrects the estimate.
	hints.Override(0, 45)
	require.Equal(t, 45, hints.Estimate(0))

	r := d.Layout(10, 50, 0)
	require.Equal(t, 45+9*10, r.TotalSize)

	// Row 1 starts where the measured row 0 ends.
	r = d.Layout(10, 50, 46)
	require.Equal(t, 1, r.Start)
	require.Equal(t, 45, r.StartOffset)

	// Toggling expansion invalidates the stale measurement.
	hints.SetExpanded(0, false)
	require.Equal(t, 10, hints.Estimate(0))
}

func TestLayout_ScrolledPastEnd(t *testing.T) {
	d, _ := newTestDriver(0, 5)

	r := d.Layout(10, 50, 5000)
	require.Equal(t, 9, r.Start)
	require.Equal(t, 10, r.End)
	require.Equal(t, 90, r.StartOffset)
}

func TestLayout_Empty(t *testing.T) {
	d, _ := newTestDriver(3, 5)

	require.Equal(t, Range{}, d.Layout(0, 50, 0))
	require.Equal(t, Range{}, d.Layout(10, 0, 0))
}

func TestShouldFetchNext_GuardSet(t *testing.T) {
	d, _ := newTestDriver(0, 5)

	nearEnd := Range{Start: 90, End: 96}

	tests := []struct {
		name     string
		r        Range
		total    int
		hasMore  bool
		inFlight bool
		want     bool
	}{
		{"near end, more pages, idle", nearEnd, 100, true, false, true},
		{"at end exactly", Range{Start: 95, End: 100}, 100, true, false, true},
		{"far from end", Range{Start: 0, End: 6}, 100, true, false, false},
		{"no more pages", nearEnd, 100, false, false, false},
		{"fetch already in flight", nearEnd, 100, true, true, false},
		{"all guards down", Range{Start: 0, End: 6}, 100, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, d.ShouldFetchNext(tt.r, tt.total, tt.hasMore, tt.inFlight))
		})
	}
}

func TestHeightHints_Reset(t *testing.T) {
	hints := NewHeightHints(10, 20)
	hints.SetExpanded(3, true)
	hints.Override(5, 42)

	hints.Reset()

	require.Equal(t, 10, hints.Estimate(3))
	require.Equal(t, 10, hints.Estimate(5))
	require.False(t, hints.IsExpanded(3))
}
