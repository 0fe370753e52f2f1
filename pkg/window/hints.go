package window

// HeightHints is the standard SizeHintProvider: a uniform base row size,
// an enlarged size for rows in the expanded display state (e.g. an order
// with its history detail open), and measured overrides that always win.
// A row's real size is not knowable from its data alone, so estimates stay
// advisory until the host reports a measurement.
//
// HeightHints is not safe for concurrent use; it is owned by the render
// loop that owns the Driver.
type HeightHints struct {
	base          int
	expandedExtra int
	expanded      map[int]struct{}
	measured      map[int]int
}

// NewHeightHints creates hints with the given base row size and the extra
// size an expanded row occupies.
func NewHeightHints(base, expandedExtra int) *HeightHints {
	if base <= 0 {
		panic("window: base row size must be positive")
	}
	return &HeightHints{
		base:          base,
		expandedExtra: expandedExtra,
		expanded:      make(map[int]struct{}),
		measured:      make(map[int]int),
	}
}

// Estimate implements SizeHintProvider.
func (h *HeightHints) Estimate(index int) int {
	if m, ok := h.measured[index]; ok {
		return m
	}
	if _, ok := h.expanded[index]; ok {
		return h.base + h.expandedExtra
	}
	return h.base
}

// Override records the measured rendered size of a row. Subsequent Layout
// calls recompute every offset after index.
func (h *HeightHints) Override(index, measured int) {
	if measured <= 0 {
		delete(h.measured, index)
		return
	}
	h.measured[index] = measured
}

// SetExpanded toggles the expanded display state of a row. Expanding
// invalidates any stale measurement for the row.
func (h *HeightHints) SetExpanded(index int, expanded bool) {
	delete(h.measured, index)
	if expanded {
		h.expanded[index] = struct{}{}
	} else {
		delete(h.expanded, index)
	}
}

// IsExpanded reports the expanded state of a row.
func (h *HeightHints) IsExpanded(index int) bool {
	_, ok := h.expanded[index]
	return ok
}

// Reset clears expansions and measurements. Called on a filter change,
// when row indices stop referring to the same orders.
func (h *HeightHints) Reset() {
	h.expanded = make(map[int]struct{})
	h.measured = make(map[int]int)
}
