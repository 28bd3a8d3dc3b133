package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/leo2971998/DailyRoutine/internal/planner"
)

type Task struct {
	ID              int64
	UserID          string
	Title           string
	DurationMinutes int
	Completed       bool
	Position        int
	CreatedAt       time.Time
}

func (db *DB) InsertTask(ctx context.Context, t *Task) (int64, error) {
	if t.DurationMinutes <= 0 {
		return 0, fmt.Errorf("inserting task %q: %w", t.Title, planner.ErrInvalidTask)
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, duration_minutes, position) VALUES (?, ?, ?, ?)`,
		t.UserID, t.Title, t.DurationMinutes, t.Position,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting task: %w", err)
	}
	return result.LastInsertId()
}

func (db *DB) CompleteTask(ctx context.Context, userID string, id int64) error {
	result, err := db.ExecContext(ctx, "UPDATE tasks SET is_completed = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("completing task: %w", err)
	}
	return expectRow(result, "task", id)
}

// DeleteTask removes a task of userID together with its planned blocks.
func (db *DB) DeleteTask(ctx context.Context, userID string, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if err := expectRow(result, "task", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM planned_blocks WHERE user_id = ? AND task_id = ?", userID, strconv.FormatInt(id, 10),
	); err != nil {
		return fmt.Errorf("deleting blocks of task %d: %w", id, err)
	}
	return tx.Commit()
}

// AllTasks returns every task of userID, completed ones included.
func (db *DB) AllTasks(ctx context.Context, userID string) ([]Task, error) {
	return db.queryTasks(ctx,
		`SELECT id, user_id, title, duration_minutes, is_completed, position, created_at
		 FROM tasks
		 WHERE user_id = ?
		 ORDER BY position ASC, id ASC`,
		userID,
	)
}

// PendingTasks returns open tasks in priority order: by position, then by
// insertion.
func (db *DB) PendingTasks(ctx context.Context, userID string) ([]Task, error) {
	return db.queryTasks(ctx,
		`SELECT id, user_id, title, duration_minutes, is_completed, position, created_at
		 FROM tasks
		 WHERE user_id = ? AND is_completed = 0
		 ORDER BY position ASC, id ASC`,
		userID,
	)
}

// UnplannedTasks is PendingTasks minus tasks that already have a planned
// block.
func (db *DB) UnplannedTasks(ctx context.Context, userID string) ([]Task, error) {
	return db.queryTasks(ctx,
		`SELECT t.id, t.user_id, t.title, t.duration_minutes, t.is_completed, t.position, t.created_at
		 FROM tasks t
		 WHERE t.user_id = ? AND t.is_completed = 0
		   AND NOT EXISTS (
			 SELECT 1 FROM planned_blocks b
			 WHERE b.user_id = t.user_id AND b.task_id = CAST(t.id AS TEXT)
		   )
		 ORDER BY t.position ASC, t.id ASC`,
		userID,
	)
}

func (db *DB) queryTasks(ctx context.Context, query string, args ...interface{}) ([]Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var createdStr string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.DurationMinutes, &t.Completed, &t.Position, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.CreatedAt = parseCreated(createdStr)
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// PlanTasks converts stored tasks into planner input, keeping their order.
func PlanTasks(tasks []Task) []planner.Task {
	out := make([]planner.Task, len(tasks))
	for i, t := range tasks {
		out[i] = planner.Task{
			ID:       strconv.FormatInt(t.ID, 10),
			Duration: time.Duration(t.DurationMinutes) * time.Minute,
		}
	}
	return out
}

// TaskTitles maps planner task ids back to titles for display.
func TaskTitles(tasks []Task) map[string]string {
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[strconv.FormatInt(t.ID, 10)] = t.Title
	}
	return titles
}
