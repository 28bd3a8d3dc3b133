// Package planner packs tasks into free time using first-fit allocation.
package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

var (
	ErrInvalidGranularity = timerange.ErrInvalidGranularity
	ErrInvalidTask        = errors.New("task duration must be positive")
)

// Task is a request for a contiguous slot of at least Duration.
type Task struct {
	ID       string        `json:"id"`
	Duration time.Duration `json:"duration"`
}

// Block is the slot assigned to a task.
type Block struct {
	TaskID string    `json:"task_id"`
	Start  time.Time `json:"start_time"`
	End    time.Time `json:"end_time"`
}

func (b Block) Range() timerange.Range {
	return timerange.Range{Start: b.Start, End: b.End}
}

// Result holds placed blocks in placement order and the ids of tasks that did
// not fit, in input order. Every input task appears in exactly one of them.
type Result struct {
	Blocks   []Block  `json:"blocks"`
	Overflow []string `json:"overflow"`
}

// Plan assigns each task, in input order, to the earliest free range with
// enough remaining room. free must be sorted by start and disjoint, as
// returned by freebusy.Calculate; it is not modified.
//
// A task occupies its requested duration rounded up to whole blocks, and
// never less than one block. Tasks that fit nowhere, including durations
// too large to round, land in Overflow; that is not an error. Plan fails
// only on an out-of-range block size or a non-positive task duration.
func Plan(free []timerange.Range, tasks []Task, blockMinutes int) (*Result, error) {
	block, err := timerange.Block(blockMinutes)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if task.Duration <= 0 {
			return nil, fmt.Errorf("%w: task %q requested %s", ErrInvalidTask, task.ID, task.Duration)
		}
	}

	result := &Result{
		Blocks:   make([]Block, 0, len(tasks)),
		Overflow: make([]string, 0),
	}
	if len(tasks) == 0 {
		return result, nil
	}

	list := newFreeList(free)
	for _, task := range tasks {
		need, ok := RequiredLength(task.Duration, block)
		if !ok {
			result.Overflow = append(result.Overflow, task.ID)
			continue
		}
		slot, ok := list.Allocate(need)
		if !ok {
			result.Overflow = append(result.Overflow, task.ID)
			continue
		}
		result.Blocks = append(result.Blocks, Block{TaskID: task.ID, Start: slot.Start, End: slot.End})
	}

	return result, nil
}

// RequiredLength is the slot length a task of duration d consumes. ok is
// false when that length cannot be represented, so the task can never fit.
func RequiredLength(d, block time.Duration) (time.Duration, bool) {
	return timerange.RoundUpDuration(d, block)
}
