package timerange

import (
	"fmt"
	"math"
	"time"
)

// maxBlockMinutes is the largest block size a time.Duration can hold.
const maxBlockMinutes = math.MaxInt64 / int64(time.Minute)

// Block converts a block size in minutes into a duration.
func Block(minutes int) (time.Duration, error) {
	if minutes <= 0 || int64(minutes) > maxBlockMinutes {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidGranularity, minutes)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// Floor truncates t to the most recent multiple of block counted from the
// Unix epoch. Sub-second components are dropped. The result is in UTC.
func Floor(t time.Time, block time.Duration) time.Time {
	secs := t.Unix()
	step := int64(block / time.Second)
	if step <= 0 {
		return t.UTC()
	}
	rem := secs % step
	if rem < 0 {
		rem += step
	}
	return time.Unix(secs-rem, 0).UTC()
}

// Ceil advances t to the next multiple of block counted from the Unix epoch.
// An instant already on the grid is returned unchanged; any remainder,
// including a fractional second, moves it a full step forward.
func Ceil(t time.Time, block time.Duration) time.Time {
	floor := Floor(t, block)
	if floor.Before(t) {
		return floor.Add(block)
	}
	return floor
}

// RoundUpDuration rounds d up to a whole number of blocks, never returning
// less than one block. ok is false when the rounded length does not fit in a
// time.Duration.
func RoundUpDuration(d, block time.Duration) (rounded time.Duration, ok bool) {
	if block <= 0 {
		return d, true
	}
	n := d / block
	if d%block != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	if n > math.MaxInt64/block {
		return 0, false
	}
	return n * block, true
}
