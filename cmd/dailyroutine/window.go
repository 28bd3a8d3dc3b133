package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"

	"github.com/leo2971998/DailyRoutine/internal/config"
	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts an absolute timestamp, a bare HH:MM on ref's day, or a
// phrase such as "tomorrow 9am" resolved forward from ref.
func parseTime(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, ref.Location()); err == nil {
			return t, nil
		}
	}
	if c, err := time.Parse("15:04", s); err == nil {
		y, m, d := ref.Date()
		return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, ref.Location()), nil
	}

	t, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q: %w", s, err)
	}
	return t, nil
}

// resolveWindow turns --from/--to into a range. Missing bounds fall back to
// the configured work hours of the day being planned. The result is not
// validated here so the planning service reports inverted windows itself.
func resolveWindow(from, to string, sched config.ScheduleConfig, now time.Time) (timerange.Range, error) {
	workday, err := sched.Window(now)
	if err != nil {
		return timerange.Range{}, err
	}

	start := workday.Start
	if from != "" {
		if start, err = parseTime(from, now); err != nil {
			return timerange.Range{}, fmt.Errorf("--from: %w", err)
		}
		if workday, err = sched.Window(start); err != nil {
			return timerange.Range{}, err
		}
	}

	end := workday.End
	if to != "" {
		if end, err = parseTime(to, start); err != nil {
			return timerange.Range{}, fmt.Errorf("--to: %w", err)
		}
	}

	return timerange.Range{Start: start, End: end}, nil
}

// dayRange returns the calendar day containing t, in t's location.
func dayRange(t time.Time) timerange.Range {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return timerange.Range{Start: start, End: start.AddDate(0, 0, 1)}
}

// parseTask reads "id=45m" or "id=45" (minutes).
func parseTask(s string) (planner.Task, error) {
	id, raw, ok := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return planner.Task{}, fmt.Errorf("task %q: want id=duration", s)
	}

	raw = strings.TrimSpace(raw)
	d, err := time.ParseDuration(raw)
	if err != nil {
		mins, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return planner.Task{}, fmt.Errorf("task %q: invalid duration %q", s, raw)
		}
		d = time.Duration(mins) * time.Minute
	}
	return planner.Task{ID: id, Duration: d}, nil
}
