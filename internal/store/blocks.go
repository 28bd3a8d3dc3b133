package store

import (
	"context"
	"fmt"

	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

// SaveBlocks applies planned blocks for userID in a single transaction.
func (db *DB) SaveBlocks(ctx context.Context, userID string, blocks []planner.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO planned_blocks (user_id, task_id, start_time, end_time) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range blocks {
		if _, err := stmt.ExecContext(ctx, userID, b.TaskID, formatTime(b.Start), formatTime(b.End)); err != nil {
			return fmt.Errorf("inserting block for task %s: %w", b.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing blocks: %w", err)
	}
	return nil
}

// ListBlocks returns applied blocks of userID intersecting window.
func (db *DB) ListBlocks(ctx context.Context, userID string, window timerange.Range) ([]planner.Block, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT task_id, start_time, end_time
		 FROM planned_blocks
		 WHERE user_id = ? AND start_time < ? AND end_time > ?
		 ORDER BY start_time ASC`,
		userID, formatTime(window.End), formatTime(window.Start),
	)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()

	var blocks []planner.Block
	for rows.Next() {
		var b planner.Block
		var startStr, endStr string
		if err := rows.Scan(&b.TaskID, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		if b.Start, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("parsing block start: %w", err)
		}
		if b.End, err = parseTime(endStr); err != nil {
			return nil, fmt.Errorf("parsing block end: %w", err)
		}
		blocks = append(blocks, b)
	}

	return blocks, rows.Err()
}

// DeleteBlocks removes applied blocks of userID that intersect window and
// reports how many were removed.
func (db *DB) DeleteBlocks(ctx context.Context, userID string, window timerange.Range) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM planned_blocks WHERE user_id = ? AND start_time < ? AND end_time > ?`,
		userID, formatTime(window.End), formatTime(window.Start),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting blocks: %w", err)
	}
	return result.RowsAffected()
}

// DeleteTaskBlocks removes every applied block of one task.
func (db *DB) DeleteTaskBlocks(ctx context.Context, userID, taskID string) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM planned_blocks WHERE user_id = ? AND task_id = ?`, userID, taskID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting blocks of task %s: %w", taskID, err)
	}
	return result.RowsAffected()
}
