// Package window implements the virtualization window driver: it projects
// the ordered collection onto a contiguous range of renderable indices from
// the scroll position and per-row size hints, and decides when a
// continuation page should be requested.
//
// The driver is a pure view projection. It never mutates the collection or
// the continuation state; hasMore and in-flight status are owned by the
// session coordinator and passed in read-only.
package window

// SizeHintProvider supplies advisory per-row size estimates. Estimates are
// subject to post-render correction: once a row's real rendered size is
// known, the host calls Override and the driver recomputes downstream
// offsets on the next Layout. The indirection keeps the driver decoupled
// from any concrete rendering substrate.
type SizeHintProvider interface {
	// Estimate returns the expected size of the row at index, in the
	// host's scroll units (pixels, terminal lines, ...).
	Estimate(index int) int
}

// Range is a contiguous run of indices to render, with cumulative offsets
// for absolute positioning.
type Range struct {
	// Start and End bound the half-open interval [Start, End) of row
	// indices to materialize, overscan included.
	Start int
	End   int

	// StartOffset is the cumulative size of all rows before Start.
	StartOffset int

	// TotalSize is the cumulative size of the whole collection, for
	// sizing the scrollable area.
	TotalSize int
}

// Driver computes visible ranges and continuation demand.
type Driver struct {
	hints SizeHintProvider

	// overscan is the number of extra rows materialized on each side of
	// the visible interval.
	overscan int

	// threshold is how close (in rows) the end of the range must be to
	// the end of the loaded collection before a continuation fetch is
	// requested.
	threshold int
}

// DefaultOverscan and DefaultFetchThreshold match the dashboard defaults.
const (
	DefaultOverscan       = 3
	DefaultFetchThreshold = 5
)

// NewDriver creates a Driver. hints must not be nil; non-positive overscan
// or threshold fall back to the defaults.
func NewDriver(hints SizeHintProvider, overscan, threshold int) *Driver {
	if hints == nil {
		panic("window: size hint provider cannot be nil")
	}
	if overscan < 0 {
		overscan = DefaultOverscan
	}
	if threshold <= 0 {
		threshold = DefaultFetchThreshold
	}
	return &Driver{hints: hints, overscan: overscan, threshold: threshold}
}

// Layout computes the index range to render for a collection of total rows
// viewed through a viewport of viewportSize starting at scrollOffset. The
// walk accumulates size hints front to back, so a measured override on any
// row shifts every offset after it.
func (d *Driver) Layout(total, viewportSize, scrollOffset int) Range {
	if total <= 0 || viewportSize <= 0 {
		return Range{}
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}

	var (
		offset      int
		start       = -1
		startOffset int
		end         = total
	)
	viewEnd := scrollOffset + viewportSize

	for i := 0; i < total; i++ {
		size := d.hints.Estimate(i)
		if size < 0 {
			size = 0
		}

		if start < 0 && offset+size > scrollOffset {
			start = i
			startOffset = offset
		}
		if end == total && offset >= viewEnd {
			end = i
			// Keep walking to accumulate TotalSize.
		}
		offset += size
	}

	if start < 0 {
		// Scrolled past the end; pin the window to the last rows.
		start = total - 1
		startOffset = offset - d.hints.Estimate(total-1)
	}

	r := Range{Start: start, End: end, StartOffset: startOffset, TotalSize: offset}
	return d.applyOverscan(r, total)
}

func (d *Driver) applyOverscan(r Range, total int) Range {
	for i := 0; i < d.overscan && r.Start > 0; i++ {
		r.Start--
		size := d.hints.Estimate(r.Start)
		if size > 0 {
			r.StartOffset -= size
		}
	}
	if r.StartOffset < 0 {
		r.StartOffset = 0
	}
	r.End += d.overscan
	if r.End > total {
		r.End = total
	}
	return r
}

// ShouldFetchNext reports whether a continuation page should be requested
// for the given range. All three guards are load-bearing: dropping any one
// of them reproduces uncontrolled duplicate fetching.
func (d *Driver) ShouldFetchNext(r Range, total int, hasMore, inFlight bool) bool {
	if !hasMore || inFlight {
		return false
	}
	return total-r.End <= d.threshold
}

// Threshold returns the configured continuation threshold, in rows.
func (d *Driver) Threshold() int {
	return d.threshold
}
