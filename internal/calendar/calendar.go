package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

// Event represents a parsed calendar event.
type Event struct {
	UID       string
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

func (e Event) Range() timerange.Range {
	return timerange.Range{Start: e.StartTime, End: e.EndTime}
}

// Fetch retrieves and parses iCalendar events from a URL or file path,
// returning events that overlap with the given window. Recurrence rules are
// not expanded; only the first occurrence of a recurring event is seen.
func Fetch(ctx context.Context, source string, window timerange.Range) ([]Event, error) {
	r, err := open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return Decode(r, window)
}

func open(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("opening calendar file: %w", err)
	}
	return f, nil
}

// Decode reads every VCALENDAR in r and keeps the events overlapping window.
func Decode(r io.Reader, window timerange.Range) ([]Event, error) {
	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(time.UTC)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(time.UTC)
			if err != nil {
				continue
			}
			if !end.After(start) {
				continue
			}

			if start.Before(window.End) && end.After(window.Start) {
				summary, _ := event.Props.Text(ical.PropSummary)
				uid, _ := event.Props.Text(ical.PropUID)
				events = append(events, Event{
					UID:       uid,
					Summary:   summary,
					StartTime: start.UTC(),
					EndTime:   end.UTC(),
				})
			}
		}
	}

	return events, nil
}

// Source exposes an iCalendar feed as busy time for one user.
type Source struct {
	Location string
	// UserID restricts the feed to one user. Empty means every user.
	UserID string
}

func (s Source) BusyRanges(ctx context.Context, userID string, window timerange.Range) ([]timerange.Range, error) {
	if s.UserID != "" && s.UserID != userID {
		return nil, nil
	}
	events, err := Fetch(ctx, s.Location, window)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", s.Location, err)
	}
	busy := make([]timerange.Range, len(events))
	for i, e := range events {
		busy[i] = e.Range()
	}
	return busy, nil
}
