package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

// Event is a calendar commitment stored for a user.
type Event struct {
	ID          int64
	UserID      string
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	Description string
	Source      string
	CreatedAt   time.Time
}

func (db *DB) InsertEvent(ctx context.Context, e *Event) (int64, error) {
	if !e.EndTime.After(e.StartTime) {
		return 0, fmt.Errorf("inserting event %q: %w", e.Title, timerange.ErrEmptyRange)
	}
	source := e.Source
	if source == "" {
		source = "manual"
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO schedule_events (user_id, title, start_time, end_time, description, source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Title, formatTime(e.StartTime), formatTime(e.EndTime), e.Description, source,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	return result.LastInsertId()
}

// ListEvents returns the events of userID that intersect window, ordered by
// start time.
func (db *DB) ListEvents(ctx context.Context, userID string, window timerange.Range) ([]Event, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, title, start_time, end_time, description, source, created_at
		 FROM schedule_events
		 WHERE user_id = ? AND start_time < ? AND end_time > ?
		 ORDER BY start_time ASC`,
		userID, formatTime(window.End), formatTime(window.Start),
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var description sql.NullString
		var startStr, endStr, createdStr string

		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Title, &startStr, &endStr, &description, &e.Source, &createdStr,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Description = description.String

		if e.StartTime, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("parsing start of event %d: %w", e.ID, err)
		}
		if e.EndTime, err = parseTime(endStr); err != nil {
			return nil, fmt.Errorf("parsing end of event %d: %w", e.ID, err)
		}
		e.CreatedAt = parseCreated(createdStr)

		events = append(events, e)
	}

	return events, rows.Err()
}

// DeleteEvent removes one event of userID.
func (db *DB) DeleteEvent(ctx context.Context, userID string, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM schedule_events WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	return expectRow(result, "event", id)
}

// BusyRanges reports stored events and previously applied plan blocks as
// busy time.
func (db *DB) BusyRanges(ctx context.Context, userID string, window timerange.Range) ([]timerange.Range, error) {
	events, err := db.ListEvents(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	blocks, err := db.ListBlocks(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	busy := make([]timerange.Range, 0, len(events)+len(blocks))
	for _, e := range events {
		r, err := timerange.New(e.StartTime, e.EndTime)
		if err != nil {
			continue
		}
		busy = append(busy, r)
	}
	for _, b := range blocks {
		busy = append(busy, b.Range())
	}
	return busy, nil
}
