package config

import (
	"fmt"
	"time"

	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

// Window returns the work hours of the calendar day containing day, in
// day's location.
func (s ScheduleConfig) Window(day time.Time) (timerange.Range, error) {
	startH, startM, err := parseClock(s.WorkStart)
	if err != nil {
		return timerange.Range{}, fmt.Errorf("work_start: %w", err)
	}
	endH, endM, err := parseClock(s.WorkEnd)
	if err != nil {
		return timerange.Range{}, fmt.Errorf("work_end: %w", err)
	}

	y, m, d := day.Date()
	start := time.Date(y, m, d, startH, startM, 0, 0, day.Location())
	end := time.Date(y, m, d, endH, endM, 0, 0, day.Location())
	return timerange.New(start, end)
}

// IsWorkDay reports whether t falls on a configured work day.
func (s ScheduleConfig) IsWorkDay(t time.Time) bool {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	for _, d := range s.WorkDays {
		if d == weekday {
			return true
		}
	}
	return false
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}
