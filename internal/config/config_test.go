package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

func TestLoadFileMissing(t *testing.T) {
	t.Setenv("DAILYROUTINE_USER", "")
	t.Setenv("DAILYROUTINE_DB", "")
	t.Setenv("DAILYROUTINE_CALENDAR", "")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("DAILYROUTINE_USER", "")
	t.Setenv("DAILYROUTINE_DB", "")
	t.Setenv("DAILYROUTINE_CALENDAR", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[planner]
block_minutes = 15

[calendar]
sources = ["/tmp/work.ics"]
`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Planner.BlockMinutes)
	assert.Equal(t, "first_fit", cfg.Planner.Strategy)
	assert.Equal(t, "09:00", cfg.Schedule.WorkStart)
	assert.Equal(t, []string{"/tmp/work.ics"}, cfg.Calendar.Sources)
}

func TestLoadFileEnv(t *testing.T) {
	t.Setenv("DAILYROUTINE_USER", "alice")
	t.Setenv("DAILYROUTINE_DB", "/tmp/alice.db")
	t.Setenv("DAILYROUTINE_CALENDAR", "a.ics,b.ics")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.User.ID)
	assert.Equal(t, "/tmp/alice.db", cfg.Store.Path)
	assert.Equal(t, []string{"a.ics", "b.ics"}, cfg.Calendar.Sources)
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[planner\n"), 0644))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	t.Setenv("DAILYROUTINE_USER", "")
	t.Setenv("DAILYROUTINE_DB", "")
	t.Setenv("DAILYROUTINE_CALENDAR", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteDefault(path))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Planner, cfg.Planner)
	assert.Equal(t, DefaultConfig().User, cfg.User)
}

func TestScheduleWindow(t *testing.T) {
	loc := time.FixedZone("UTC+1", 60*60)
	day := time.Date(2025, 3, 10, 15, 42, 0, 0, loc)

	w, err := ScheduleConfig{WorkStart: "09:00", WorkEnd: "17:30"}.Window(day)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 17, 30, 0, 0, loc), w.End)

	_, err = ScheduleConfig{WorkStart: "9am", WorkEnd: "17:00"}.Window(day)
	assert.ErrorContains(t, err, "work_start")

	_, err = ScheduleConfig{WorkStart: "17:00", WorkEnd: "09:00"}.Window(day)
	assert.ErrorIs(t, err, timerange.ErrEmptyRange)
}

func TestIsWorkDay(t *testing.T) {
	s := DefaultConfig().Schedule
	assert.True(t, s.IsWorkDay(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))  // Monday
	assert.False(t, s.IsWorkDay(time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC))) // Sunday

	s.WorkDays = []int{7}
	assert.True(t, s.IsWorkDay(time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC)))
}
