package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leo2971998/DailyRoutine/internal/calendar"
	"github.com/leo2971998/DailyRoutine/internal/config"
	"github.com/leo2971998/DailyRoutine/internal/store"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

const listDays = 30

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}

// listWindow resolves --from/--to for listings. Without either flag it spans
// today and the listDays that follow.
func listWindow(cmd *cobra.Command, cfg *config.Config, now time.Time) (timerange.Range, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	if from == "" && to == "" {
		today := dayRange(now)
		return timerange.Range{Start: today.Start, End: today.Start.AddDate(0, 0, listDays)}, nil
	}
	return resolveWindow(from, to, cfg.Schedule, now)
}

func runEventAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	description, _ := cmd.Flags().GetString("description")

	now := time.Now()
	start, err := parseTime(from, now)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	end, err := parseTime(to, start)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.InsertEvent(cmd.Context(), &store.Event{
		UserID:      cfg.User.ID,
		Title:       title,
		StartTime:   start,
		EndTime:     end,
		Description: description,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added event #%d: %s %s\n", id, title, timerange.Range{Start: start, End: end})
	return nil
}

func runEventList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	window, err := listWindow(cmd, cfg, time.Now())
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := db.ListEvents(cmd.Context(), cfg.User.ID, window)
	if err != nil {
		return fmt.Errorf("fetching events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No events in", window)
		return nil
	}
	for _, e := range events {
		fmt.Printf("  #%-4d %s–%s  %-6s  %s\n",
			e.ID,
			e.StartTime.Local().Format("Mon Jan 2 15:04"),
			e.EndTime.Local().Format("15:04"),
			e.Source,
			e.Title,
		)
	}
	return nil
}

func runEventRm(cmd *cobra.Command, args []string) error {
	id, err := parseID("event", args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteEvent(cmd.Context(), cfg.User.ID, id); err != nil {
		return fmt.Errorf("removing event: %w", err)
	}
	fmt.Printf("Removed event #%d\n", id)
	return nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	minutes, _ := cmd.Flags().GetInt("minutes")
	position, _ := cmd.Flags().GetInt("position")

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.InsertTask(cmd.Context(), &store.Task{
		UserID:          cfg.User.ID,
		Title:           title,
		DurationMinutes: minutes,
		Position:        position,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added task #%d: %s (%dmin)\n", id, title, minutes)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tasks, err := db.PendingTasks(cmd.Context(), cfg.User.ID)
	if err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No pending tasks.")
		return nil
	}
	for _, t := range tasks {
		fmt.Printf("  #%-4d %3dmin  %s\n", t.ID, t.DurationMinutes, t.Title)
	}
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	id, err := parseID("task", args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.CompleteTask(cmd.Context(), cfg.User.ID, id); err != nil {
		return fmt.Errorf("completing task: %w", err)
	}
	fmt.Printf("Completed task #%d\n", id)
	return nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	id, err := parseID("task", args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteTask(cmd.Context(), cfg.User.ID, id); err != nil {
		return fmt.Errorf("removing task: %w", err)
	}
	fmt.Printf("Removed task #%d and its planned blocks\n", id)
	return nil
}

// runUnplan removes planned blocks for one task, or for every task in a
// window, so those tasks are planned again on the next run.
func runUnplan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	taskID, _ := cmd.Flags().GetInt64("task")

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	removed, err := unplan(cmd, cfg, db, taskID)
	if err != nil {
		return fmt.Errorf("removing blocks: %w", err)
	}
	fmt.Printf("Removed %d planned blocks\n", removed)
	return nil
}

func unplan(cmd *cobra.Command, cfg *config.Config, db *store.DB, taskID int64) (int64, error) {
	if taskID > 0 {
		return db.DeleteTaskBlocks(cmd.Context(), cfg.User.ID, strconv.FormatInt(taskID, 10))
	}
	window, err := windowFromFlags(cmd, cfg)
	if err != nil {
		return 0, err
	}
	if window.IsEmpty() {
		return 0, timerange.ErrEmptyRange
	}
	return db.DeleteBlocks(cmd.Context(), cfg.User.ID, window)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	today := dayRange(time.Now())
	window := timerange.Range{Start: today.Start, End: today.Start.AddDate(0, 0, days)}

	events, err := calendar.Fetch(cmd.Context(), args[0], window)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, e := range events {
		if _, err := db.InsertEvent(cmd.Context(), &store.Event{
			UserID:      cfg.User.ID,
			Title:       e.Summary,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			Description: e.UID,
			Source:      "ics",
		}); err != nil {
			return fmt.Errorf("saving %q: %w", e.Summary, err)
		}
	}
	fmt.Printf("Imported %d events from %s\n", len(events), args[0])
	return nil
}
