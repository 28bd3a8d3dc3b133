package timerange

import (
	"fmt"
	"time"
)

// Range is a half-open span of absolute time, [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// New returns the range [start, end) or ErrEmptyRange if end is not after start.
func New(start, end time.Time) (Range, error) {
	if !end.After(start) {
		return Range{}, fmt.Errorf("%w: %s is not after %s", ErrEmptyRange,
			end.UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339))
	}
	return Range{Start: start, End: end}, nil
}

func (r Range) Duration() time.Duration {
	if r.IsEmpty() {
		return 0
	}
	return r.End.Sub(r.Start)
}

func (r Range) IsEmpty() bool {
	return !r.End.After(r.Start)
}

// UTC returns the range with both ends converted to UTC.
func (r Range) UTC() Range {
	return Range{Start: r.Start.UTC(), End: r.End.UTC()}
}

func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

func (r Range) Adjacent(other Range) bool {
	return r.End.Equal(other.Start) || other.End.Equal(r.Start)
}

func (r Range) Contains(other Range) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// Clip intersects r with window. The second return value is false when the
// intersection has no length.
func (r Range) Clip(window Range) (Range, bool) {
	start := r.Start
	if window.Start.After(start) {
		start = window.Start
	}
	end := r.End
	if window.End.Before(end) {
		end = window.End
	}
	if !end.After(start) {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// Merge returns the smallest range covering both r and other. The two must
// overlap or touch.
func (r Range) Merge(other Range) Range {
	if !r.Overlaps(other) && !r.Adjacent(other) {
		panic("cannot merge non-overlapping, non-adjacent ranges")
	}
	start := r.Start
	if other.Start.Before(start) {
		start = other.Start
	}
	end := r.End
	if other.End.After(end) {
		end = other.End
	}
	return Range{Start: start, End: end}
}

// Align shrinks r inward to the block grid: the start is rounded up and the
// end rounded down. It reports false when nothing of a full block remains.
func (r Range) Align(block time.Duration) (Range, bool) {
	aligned := Range{Start: Ceil(r.Start, block), End: Floor(r.End, block)}
	if aligned.IsEmpty() {
		return Range{}, false
	}
	return aligned, true
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
