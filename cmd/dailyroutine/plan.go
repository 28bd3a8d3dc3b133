package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/leo2971998/DailyRoutine/internal/calendar"
	"github.com/leo2971998/DailyRoutine/internal/config"
	"github.com/leo2971998/DailyRoutine/internal/notify"
	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/schedule"
	"github.com/leo2971998/DailyRoutine/internal/store"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
	"github.com/leo2971998/DailyRoutine/internal/tui"
)

// newService wires the store and every configured calendar feed as busy
// sources.
func newService(cfg *config.Config, db *store.DB, logger *slog.Logger) *schedule.Service {
	sources := []schedule.BusySource{db}
	for _, loc := range cfg.Calendar.Sources {
		sources = append(sources, calendar.Source{Location: loc})
	}
	return schedule.NewService(logger, cfg.Planner.BlockMinutes, sources...)
}

func windowFromFlags(cmd *cobra.Command, cfg *config.Config) (timerange.Range, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return resolveWindow(from, to, cfg.Schedule, time.Now())
}

func runFree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	window, err := windowFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	block, _ := cmd.Flags().GetInt("block")

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	free, err := newService(cfg, db, newLogger()).FreeRanges(cmd.Context(), cfg.User.ID, window, block)
	if err != nil {
		return err
	}
	fmt.Print(tui.RenderRanges("Free time", free))
	return nil
}

func runBusy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	window, err := windowFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	busy, err := newService(cfg, db, newLogger()).Busy(cmd.Context(), cfg.User.ID, window)
	if err != nil {
		return err
	}
	fmt.Print(tui.RenderRanges("Busy time", busy))
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	window, err := windowFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	block, _ := cmd.Flags().GetInt("block")
	rawTasks, _ := cmd.Flags().GetStringArray("task")
	apply, _ := cmd.Flags().GetBool("apply")
	review, _ := cmd.Flags().GetBool("review")
	icsPath, _ := cmd.Flags().GetString("ics")

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tasks, titles, err := loadTasks(cmd.Context(), db, cfg.User.ID, rawTasks)
	if err != nil {
		return err
	}

	logger := newLogger()
	result, err := newService(cfg, db, logger).Plan(cmd.Context(), schedule.Request{
		UserID:       cfg.User.ID,
		Window:       window,
		Tasks:        tasks,
		BlockMinutes: block,
		Strategy:     cfg.Planner.Strategy,
	})
	if err != nil {
		return err
	}

	notifier := notify.New(cfg.Notifications.Enabled, logger)
	save := func(ctx context.Context, blocks []planner.Block) error {
		if err := db.SaveBlocks(ctx, cfg.User.ID, blocks); err != nil {
			return err
		}
		notifier.PlanApplied(len(blocks), len(result.Overflow))
		return nil
	}

	if review {
		app := tui.NewApp(window, result, titles, save)
		p := tea.NewProgram(app)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running TUI: %w", err)
		}
		if r := app.GetResult(); r != nil && !r.Applied {
			fmt.Println("Plan discarded.")
		}
	} else {
		fmt.Print(tui.RenderPlan(result, titles, -1))
		if apply && len(result.Blocks) > 0 {
			if err := save(cmd.Context(), result.Blocks); err != nil {
				return fmt.Errorf("saving plan: %w", err)
			}
			fmt.Println(notify.Summary(len(result.Blocks), len(result.Overflow)))
		}
	}

	if icsPath != "" {
		switch err := writeICS(icsPath, result.Blocks, titles); {
		case errors.Is(err, calendar.ErrNoBlocks):
			fmt.Printf("No blocks placed, skipping %s\n", icsPath)
		case err != nil:
			return err
		default:
			fmt.Printf("Wrote %d blocks to %s\n", len(result.Blocks), icsPath)
		}
	}
	return nil
}

// loadTasks parses ad-hoc --task values, or falls back to the stored tasks
// that have no planned block yet.
func loadTasks(ctx context.Context, db *store.DB, userID string, raw []string) ([]planner.Task, map[string]string, error) {
	if len(raw) > 0 {
		tasks := make([]planner.Task, 0, len(raw))
		for _, r := range raw {
			task, err := parseTask(r)
			if err != nil {
				return nil, nil, err
			}
			tasks = append(tasks, task)
		}
		return tasks, nil, nil
	}
	unplanned, err := db.UnplannedTasks(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching tasks: %w", err)
	}
	return store.PlanTasks(unplanned), store.TaskTitles(unplanned), nil
}

// writeICS leaves no file behind when there is nothing to export or the
// encoding fails.
func writeICS(path string, blocks []planner.Block, titles map[string]string) error {
	if len(blocks) == 0 {
		return calendar.ErrNoBlocks
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := calendar.ExportBlocks(f, blocks, titles, time.Now()); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

