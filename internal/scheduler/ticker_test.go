package scheduler

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leo2971998/DailyRoutine/internal/config"
	"github.com/leo2971998/DailyRoutine/internal/notify"
	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/schedule"
	"github.com/leo2971998/DailyRoutine/internal/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.DefaultConfig()
	svc := schedule.NewService(nil, cfg.Planner.BlockMinutes, db)
	s, err := New(&cfg, svc, db, notify.New(false, nil), nil)
	require.NoError(t, err)
	return s, db
}

func TestTick(t *testing.T) {
	s, db := newTestScheduler(t)
	ctx := context.Background()
	monday := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := db.InsertEvent(ctx, &store.Event{UserID: "demo", Title: "standup", StartTime: monday, EndTime: monday.Add(time.Hour)})
	require.NoError(t, err)
	first, err := db.InsertTask(ctx, &store.Task{UserID: "demo", Title: "report", DurationMinutes: 45, Position: 1})
	require.NoError(t, err)
	second, err := db.InsertTask(ctx, &store.Task{UserID: "demo", Title: "inbox", DurationMinutes: 30, Position: 2})
	require.NoError(t, err)

	result, err := s.Tick(ctx, monday)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Overflow)
	assert.Equal(t, []planner.Block{
		{TaskID: strconv.FormatInt(first, 10), Start: monday.Add(time.Hour), End: monday.Add(2 * time.Hour)},
		{TaskID: strconv.FormatInt(second, 10), Start: monday.Add(2 * time.Hour), End: monday.Add(150 * time.Minute)},
	}, result.Blocks)

	last, err := LastPlan(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, monday, last)

	// Every task now has a block, so the next run has nothing to do.
	result, err = s.Tick(ctx, monday.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTickOutsideWorkHours(t *testing.T) {
	s, db := newTestScheduler(t)
	ctx := context.Background()

	_, err := db.InsertTask(ctx, &store.Task{UserID: "demo", Title: "report", DurationMinutes: 45})
	require.NoError(t, err)

	for name, at := range map[string]time.Time{
		"sunday":      time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC),
		"after hours": time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC),
	} {
		t.Run(name, func(t *testing.T) {
			result, err := s.Tick(ctx, at)
			require.NoError(t, err)
			assert.Nil(t, result)
		})
	}

	last, err := LastPlan(ctx, db)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestTickBeforeWorkStartUsesWholeDay(t *testing.T) {
	s, db := newTestScheduler(t)
	ctx := context.Background()

	_, err := db.InsertTask(ctx, &store.Task{UserID: "demo", Title: "report", DurationMinutes: 30})
	require.NoError(t, err)

	result, err := s.Tick(ctx, time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), result.Blocks[0].Start)
}

func TestNextAlignedTick(t *testing.T) {
	tests := []struct {
		now      string
		interval time.Duration
		want     string
	}{
		{"09:10", time.Hour, "10:00"},
		{"09:00", time.Hour, "10:00"},
		{"09:10", 30 * time.Minute, "09:30"},
		{"09:45", 30 * time.Minute, "10:00"},
		{"23:50", 15 * time.Minute, "00:00"},
		{"09:10", 0, "10:00"},
	}

	for _, tt := range tests {
		now := clockAt(t, tt.now)
		got := nextAlignedTick(now, tt.interval)
		assert.Equal(t, tt.want, got.Format("15:04"), "now=%s interval=%s", tt.now, tt.interval)
		assert.True(t, got.After(now))
	}
}

func clockAt(t *testing.T, hhmm string) time.Time {
	t.Helper()
	c, err := time.Parse("15:04", hhmm)
	require.NoError(t, err)
	return time.Date(2025, 3, 10, c.Hour(), c.Minute(), 0, 0, time.UTC)
}

func TestCronSchedule(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Schedule.Cron = "15 8-17 * * 1-5"

	s, err := New(&cfg, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, clockAt(t, "10:15"), s.next(clockAt(t, "09:20")))
	assert.Equal(t, "cron: 15 8-17 * * 1-5", s.describe())

	cfg.Schedule.Cron = ""
	s, err = New(&cfg, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, clockAt(t, "10:00"), s.next(clockAt(t, "09:20")))

	cfg.Schedule.Cron = "every tuesday"
	_, err = New(&cfg, nil, nil, nil, nil)
	assert.ErrorContains(t, err, "schedule.cron")
}

func TestSetConfigKeepsPreviousOnError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Schedule.Cron = "0 * * * *"
	s, err := New(&cfg, nil, nil, nil, nil)
	require.NoError(t, err)

	bad := config.DefaultConfig()
	bad.Schedule.Cron = "not a cron"
	require.Error(t, s.setConfig(&bad))
	assert.Equal(t, "cron: 0 * * * *", s.describe())

	good := config.DefaultConfig()
	good.Schedule.IntervalMinutes = 15
	require.NoError(t, s.setConfig(&good))
	assert.Equal(t, clockAt(t, "09:30"), s.next(clockAt(t, "09:20")))
}

func TestWatchConfig(t *testing.T) {
	t.Setenv("DAILYROUTINE_USER", "")
	t.Setenv("DAILYROUTINE_DB", "")
	t.Setenv("DAILYROUTINE_CALENDAR", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.WriteDefault(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads, err := watchConfig(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[planner]\nblock_minutes = 15\n"), 0644))

	select {
	case cfg := <-reloads:
		assert.Equal(t, 15, cfg.Planner.BlockMinutes)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not delivered")
	}

	cancel()
	for range reloads {
	}
}
