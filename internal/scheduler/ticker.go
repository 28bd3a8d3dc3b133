package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leo2971998/DailyRoutine/internal/config"
	"github.com/leo2971998/DailyRoutine/internal/notify"
	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/schedule"
	"github.com/leo2971998/DailyRoutine/internal/store"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

const lastPlanKey = "last_plan"

// Scheduler periodically plans the user's unplanned tasks into the rest of
// the current work day and applies the result.
type Scheduler struct {
	cfg      *config.Config
	svc      *schedule.Service
	db       *store.DB
	notifier *notify.Notifier
	logger   *slog.Logger
	cron     cron.Schedule

	configPath string
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New builds a scheduler. A non-empty cfg.Schedule.Cron replaces the
// interval-aligned run times.
func New(cfg *config.Config, svc *schedule.Service, db *store.DB, notifier *notify.Notifier, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Scheduler{
		svc:      svc,
		db:       db,
		notifier: notifier,
		logger:   logger,
	}
	if err := s.setConfig(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// WatchConfig makes Run pick up edits to the config file at path.
func (s *Scheduler) WatchConfig(path string) {
	s.configPath = path
}

func (s *Scheduler) setConfig(cfg *config.Config) error {
	var sched cron.Schedule
	if spec := strings.TrimSpace(cfg.Schedule.Cron); spec != "" {
		var err error
		if sched, err = cronParser.Parse(spec); err != nil {
			return fmt.Errorf("parsing schedule.cron %q: %w", spec, err)
		}
	}
	s.cfg = cfg
	s.cron = sched
	return nil
}

func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer s.removePID()

	var reloads <-chan *config.Config
	if s.configPath != "" {
		ch, err := watchConfig(ctx, s.configPath, s.logger)
		if err != nil {
			s.logger.Warn("config reload disabled", "error", err)
		} else {
			reloads = ch
		}
	}

	fmt.Printf("Scheduler started (%s, hours: %s-%s)\n",
		s.describe(), s.cfg.Schedule.WorkStart, s.cfg.Schedule.WorkEnd)

	for {
		nextTick := s.next(time.Now())
		fmt.Printf("Next planning run at %s\n", nextTick.Format("15:04"))

		select {
		case <-ctx.Done():
			fmt.Println("\nScheduler stopped.")
			return nil
		case cfg, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			if err := s.setConfig(cfg); err != nil {
				s.logger.Warn("keeping previous config", "error", err)
				continue
			}
			fmt.Printf("Config reloaded (%s)\n", s.describe())
			continue
		case <-time.After(time.Until(nextTick)):
		}

		result, err := s.Tick(ctx, nextTick)
		if err != nil {
			s.logger.Error("planning run failed", "error", err)
			continue
		}
		if result != nil {
			fmt.Printf("Planned %d blocks, %d tasks did not fit\n", len(result.Blocks), len(result.Overflow))
		}
	}
}

// Tick plans unplanned tasks into [at, end of work day) and saves the blocks.
// It returns nil outside work hours or when there is nothing to plan.
func (s *Scheduler) Tick(ctx context.Context, at time.Time) (*planner.Result, error) {
	if !s.cfg.Schedule.IsWorkDay(at) {
		return nil, nil
	}
	workday, err := s.cfg.Schedule.Window(at)
	if err != nil {
		return nil, err
	}
	window, ok := timerange.Range{Start: at, End: workday.End}.Clip(workday)
	if !ok {
		return nil, nil
	}

	tasks, err := s.db.UnplannedTasks(ctx, s.cfg.User.ID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	result, err := s.svc.Plan(ctx, schedule.Request{
		UserID:       s.cfg.User.ID,
		Window:       window,
		Tasks:        store.PlanTasks(tasks),
		BlockMinutes: s.cfg.Planner.BlockMinutes,
		Strategy:     s.cfg.Planner.Strategy,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.SaveBlocks(ctx, s.cfg.User.ID, result.Blocks); err != nil {
		return nil, err
	}
	if err := s.db.SetState(ctx, lastPlanKey, at.UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("recording plan time failed", "error", err)
	}
	s.notifier.PlanApplied(len(result.Blocks), len(result.Overflow))

	return result, nil
}

func (s *Scheduler) next(now time.Time) time.Time {
	if s.cron != nil {
		return s.cron.Next(now)
	}
	return nextAlignedTick(now, time.Duration(s.cfg.Schedule.IntervalMinutes)*time.Minute)
}

func (s *Scheduler) describe() string {
	if s.cron != nil {
		return "cron: " + s.cfg.Schedule.Cron
	}
	return fmt.Sprintf("interval: %dm", s.cfg.Schedule.IntervalMinutes)
}

// nextAlignedTick returns the first instant after now that is a whole number
// of intervals past the hour.
func nextAlignedTick(now time.Time, interval time.Duration) time.Time {
	mins := int(interval.Minutes())
	if mins <= 0 {
		mins = 60
	}

	currentMinute := now.Minute()
	nextMinute := ((currentMinute / mins) + 1) * mins

	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	return next.Add(time.Duration(nextMinute) * time.Minute)
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dailyroutine.pid"), nil
}

func (s *Scheduler) writePID() error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	path, err := pidPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (s *Scheduler) removePID() {
	if path, err := pidPath(); err == nil {
		os.Remove(path)
	}
}

func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running scheduler found")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}

// LastPlan returns when the scheduler last applied a plan, or the zero time.
func LastPlan(ctx context.Context, db *store.DB) (time.Time, error) {
	v, err := db.GetState(ctx, lastPlanKey)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
