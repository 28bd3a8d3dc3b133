package planner

import (
	"time"

	"github.com/google/btree"

	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

// freeList is the planner's private copy of the remaining free time, ordered
// by start.
type freeList struct {
	tree *btree.BTreeG[timerange.Range]
}

func newFreeList(free []timerange.Range) *freeList {
	tree := btree.NewG(32, func(a, b timerange.Range) bool {
		return a.Start.Before(b.Start)
	})
	for _, r := range free {
		if r.IsEmpty() {
			continue
		}
		tree.ReplaceOrInsert(r)
	}
	return &freeList{tree: tree}
}

// Allocate carves size off the front of the first range long enough to hold
// it. The shortened remainder, if any, stays in place for later calls.
func (l *freeList) Allocate(size time.Duration) (timerange.Range, bool) {
	var found timerange.Range
	var ok bool
	l.tree.Ascend(func(item timerange.Range) bool {
		if item.Duration() >= size {
			found = item
			ok = true
			return false
		}
		return true
	})
	if !ok {
		return timerange.Range{}, false
	}

	l.tree.Delete(found)
	slot := timerange.Range{Start: found.Start, End: found.Start.Add(size)}
	if rest := (timerange.Range{Start: slot.End, End: found.End}); !rest.IsEmpty() {
		l.tree.ReplaceOrInsert(rest)
	}
	return slot, true
}
