// Package freebusy turns busy calendar ranges into block-aligned free time.
package freebusy

import (
	"slices"
	"time"

	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

// Calculate returns the free ranges of window not covered by any busy range,
// each shrunk inward to the blockMinutes grid. The result is sorted by start
// and pairwise disjoint, and is empty when the window is inverted, fully
// busy, or too short to hold a single block.
//
// Busy ranges may overlap and arrive in any order. Ranges that touch are
// treated as one commitment. Inputs are not modified.
func Calculate(window timerange.Range, busy []timerange.Range, blockMinutes int) ([]timerange.Range, error) {
	block, err := timerange.Block(blockMinutes)
	if err != nil {
		return nil, err
	}

	window = window.UTC()
	if window.IsEmpty() {
		return nil, nil
	}

	clipped := make([]timerange.Range, 0, len(busy))
	for _, b := range busy {
		if c, ok := b.UTC().Clip(window); ok {
			clipped = append(clipped, c)
		}
	}

	var free []timerange.Range
	cursor := window.Start
	for _, b := range Merge(clipped) {
		if b.Start.After(cursor) {
			free = appendAligned(free, timerange.Range{Start: cursor, End: b.Start}, block)
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(window.End) {
		free = appendAligned(free, timerange.Range{Start: cursor, End: window.End}, block)
	}

	return free, nil
}

// Merge collapses busy into a minimal sorted set of disjoint ranges. Ranges
// merge when the next one starts at or before the current end, so touching
// commitments never leave a zero-width gap. Empty ranges are dropped.
func Merge(busy []timerange.Range) []timerange.Range {
	sorted := make([]timerange.Range, 0, len(busy))
	for _, b := range busy {
		if !b.IsEmpty() {
			sorted = append(sorted, b.UTC())
		}
	}
	slices.SortStableFunc(sorted, func(a, b timerange.Range) int {
		return a.Start.Compare(b.Start)
	})

	var merged []timerange.Range
	for _, b := range sorted {
		if n := len(merged); n > 0 && !b.Start.After(merged[n-1].End) {
			merged[n-1] = merged[n-1].Merge(b)
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

func appendAligned(free []timerange.Range, gap timerange.Range, block time.Duration) []timerange.Range {
	if aligned, ok := gap.Align(block); ok {
		return append(free, aligned)
	}
	return free
}
