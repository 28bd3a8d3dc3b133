package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func clock(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func span(h1, m1, h2, m2 int) timerange.Range {
	return timerange.Range{Start: clock(h1, m1), End: clock(h2, m2)}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEvents(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, e := range []Event{
		{UserID: "demo", Title: "standup", StartTime: clock(9, 30), EndTime: clock(9, 45)},
		{UserID: "demo", Title: "lunch", StartTime: clock(12, 0), EndTime: clock(13, 0), Description: "cafe"},
		{UserID: "demo", Title: "yesterday", StartTime: clock(-10, 0), EndTime: clock(-9, 0)},
		{UserID: "other", Title: "not mine", StartTime: clock(10, 0), EndTime: clock(11, 0)},
	} {
		_, err := db.InsertEvent(ctx, &e)
		require.NoError(t, err)
	}

	events, err := db.ListEvents(ctx, "demo", span(9, 0, 12, 30))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "standup", events[0].Title)
	assert.Equal(t, clock(9, 30), events[0].StartTime)
	assert.Equal(t, "manual", events[0].Source)
	assert.Equal(t, "lunch", events[1].Title)
	assert.Equal(t, "cafe", events[1].Description)

	_, err = db.InsertEvent(ctx, &Event{UserID: "demo", Title: "broken", StartTime: clock(9, 0), EndTime: clock(9, 0)})
	assert.ErrorIs(t, err, timerange.ErrEmptyRange)
}

func TestEventsTouchingWindowEdgeAreExcluded(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.InsertEvent(ctx, &Event{UserID: "demo", Title: "before", StartTime: clock(8, 0), EndTime: clock(9, 0)})
	require.NoError(t, err)
	_, err = db.InsertEvent(ctx, &Event{UserID: "demo", Title: "after", StartTime: clock(12, 0), EndTime: clock(13, 0)})
	require.NoError(t, err)

	events, err := db.ListEvents(ctx, "demo", span(9, 0, 12, 0))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTasks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ids := make([]int64, 0, 3)
	for _, task := range []Task{
		{UserID: "demo", Title: "write report", DurationMinutes: 45, Position: 2},
		{UserID: "demo", Title: "inbox zero", DurationMinutes: 15, Position: 1},
		{UserID: "demo", Title: "gym", DurationMinutes: 60, Position: 2},
	} {
		id, err := db.InsertTask(ctx, &task)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, db.CompleteTask(ctx, "demo", ids[2]))

	_, err := db.InsertTask(ctx, &Task{UserID: "demo", Title: "nothing", DurationMinutes: 0})
	assert.ErrorIs(t, err, planner.ErrInvalidTask)

	pending, err := db.PendingTasks(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "inbox zero", pending[0].Title)
	assert.Equal(t, "write report", pending[1].Title)
	assert.False(t, pending[0].Completed)

	planned := PlanTasks(pending)
	assert.Equal(t, 15*time.Minute, planned[0].Duration)
	assert.Equal(t, "write report", TaskTitles(pending)[planned[1].ID])

	require.NoError(t, db.SaveBlocks(ctx, "demo", []planner.Block{
		{TaskID: planned[0].ID, Start: clock(9, 0), End: clock(9, 30)},
	}))
	unplanned, err := db.UnplannedTasks(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, unplanned, 1)
	assert.Equal(t, "write report", unplanned[0].Title)
}

func TestBlocksCountAsBusy(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.InsertEvent(ctx, &Event{UserID: "demo", Title: "standup", StartTime: clock(9, 30), EndTime: clock(10, 0)})
	require.NoError(t, err)

	blocks := []planner.Block{
		{TaskID: "1", Start: clock(10, 0), End: clock(11, 0)},
		{TaskID: "2", Start: clock(11, 0), End: clock(11, 30)},
	}
	require.NoError(t, db.SaveBlocks(ctx, "demo", blocks))
	require.NoError(t, db.SaveBlocks(ctx, "demo", nil))

	stored, err := db.ListBlocks(ctx, "demo", span(9, 0, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, blocks, stored)

	busy, err := db.BusyRanges(ctx, "demo", span(9, 0, 12, 0))
	require.NoError(t, err)
	assert.ElementsMatch(t, []timerange.Range{span(9, 30, 10, 0), span(10, 0, 11, 0), span(11, 0, 11, 30)}, busy)

	busy, err = db.BusyRanges(ctx, "other", span(9, 0, 12, 0))
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestState(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	v, err := db.GetState(ctx, "last_plan")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, db.SetState(ctx, "last_plan", "a"))
	require.NoError(t, db.SetState(ctx, "last_plan", "b"))
	v, err = db.GetState(ctx, "last_plan")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestSubSecondTimesSurvive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	end := clock(10, 0).Add(500 * time.Millisecond)
	_, err := db.InsertEvent(ctx, &Event{UserID: "demo", Title: "overrun", StartTime: clock(9, 0), EndTime: end})
	require.NoError(t, err)

	events, err := db.ListEvents(ctx, "demo", span(9, 0, 11, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, end, events[0].EndTime)

	// A window that starts at 10:00 still sees the half second of overrun.
	busy, err := db.BusyRanges(ctx, "demo", span(10, 0, 11, 0))
	require.NoError(t, err)
	assert.Equal(t, []timerange.Range{{Start: clock(9, 0), End: end}}, busy)
}

func TestTimeLayoutOrdersAsText(t *testing.T) {
	earlier := formatTime(clock(9, 59).Add(59*time.Second + 999*time.Millisecond))
	later := formatTime(clock(10, 0))
	assert.Less(t, earlier, later)
	assert.Len(t, later, len(earlier))
}

func TestDeleteEvent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertEvent(ctx, &Event{UserID: "demo", Title: "bad import", StartTime: clock(9, 0), EndTime: clock(17, 0), Source: "ics"})
	require.NoError(t, err)

	assert.ErrorIs(t, db.DeleteEvent(ctx, "other", id), ErrNotFound)
	require.NoError(t, db.DeleteEvent(ctx, "demo", id))
	assert.ErrorIs(t, db.DeleteEvent(ctx, "demo", id), ErrNotFound)

	busy, err := db.BusyRanges(ctx, "demo", span(9, 0, 17, 0))
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestCompleteAndDeleteTask(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, db.CompleteTask(ctx, "demo", 42), ErrNotFound)

	keep, err := db.InsertTask(ctx, &Task{UserID: "demo", Title: "keep", DurationMinutes: 30})
	require.NoError(t, err)
	drop, err := db.InsertTask(ctx, &Task{UserID: "demo", Title: "drop", DurationMinutes: 30})
	require.NoError(t, err)
	tasks, err := db.PendingTasks(ctx, "demo")
	require.NoError(t, err)
	planned := PlanTasks(tasks)
	require.NoError(t, db.SaveBlocks(ctx, "demo", []planner.Block{
		{TaskID: planned[0].ID, Start: clock(9, 0), End: clock(9, 30)},
		{TaskID: planned[1].ID, Start: clock(9, 30), End: clock(10, 0)},
	}))

	require.NoError(t, db.CompleteTask(ctx, "demo", keep))
	require.NoError(t, db.DeleteTask(ctx, "demo", drop))
	assert.ErrorIs(t, db.DeleteTask(ctx, "demo", drop), ErrNotFound)

	all, err := db.AllTasks(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Completed)

	blocks, err := db.ListBlocks(ctx, "demo", span(9, 0, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, []planner.Block{{TaskID: planned[0].ID, Start: clock(9, 0), End: clock(9, 30)}}, blocks)
}

func TestDeleteBlocks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveBlocks(ctx, "demo", []planner.Block{
		{TaskID: "1", Start: clock(9, 0), End: clock(10, 0)},
		{TaskID: "2", Start: clock(10, 0), End: clock(11, 0)},
		{TaskID: "1", Start: clock(13, 0), End: clock(14, 0)},
	}))
	require.NoError(t, db.SaveBlocks(ctx, "other", []planner.Block{
		{TaskID: "9", Start: clock(9, 0), End: clock(10, 0)},
	}))

	n, err := db.DeleteBlocks(ctx, "demo", span(9, 30, 10, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = db.DeleteTaskBlocks(ctx, "demo", "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	blocks, err := db.ListBlocks(ctx, "demo", span(0, 0, 23, 0))
	require.NoError(t, err)
	assert.Equal(t, []planner.Block{{TaskID: "2", Start: clock(10, 0), End: clock(11, 0)}}, blocks)

	others, err := db.ListBlocks(ctx, "other", span(0, 0, 23, 0))
	require.NoError(t, err)
	assert.Len(t, others, 1)
}
