package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leo2971998/DailyRoutine/internal/config"
	"github.com/leo2971998/DailyRoutine/internal/notify"
	"github.com/leo2971998/DailyRoutine/internal/scheduler"
	"github.com/leo2971998/DailyRoutine/internal/store"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "dailyroutine",
	Short:         "Plan tasks into the free time of your day",
	Long:          "dailyroutine reads your calendar and stored events, finds the free time in a window, and places your pending tasks into it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var freeCmd = &cobra.Command{
	Use:   "free",
	Short: "Show free time in a window",
	RunE:  runFree,
}

var busyCmd = &cobra.Command{
	Use:   "busy",
	Short: "Show merged busy time in a window",
	RunE:  runBusy,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Place pending tasks into free time",
	RunE:  runPlan,
}

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage stored events",
}

var eventAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a busy event",
	RunE:  runEventAdd,
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored events in a window",
	RunE:  runEventList,
}

var eventRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a stored event",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventRm,
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a pending task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending tasks in priority order",
	RunE:  runTaskList,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a task and its planned blocks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

var unplanCmd = &cobra.Command{
	Use:   "unplan",
	Short: "Remove planned blocks so their tasks are planned again",
	RunE:  runUnplan,
}

var importCmd = &cobra.Command{
	Use:   "import <file-or-url>",
	Short: "Copy calendar events into the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the auto-planning scheduler",
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running scheduler",
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's planned blocks",
	RunE:  runStatus,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	for _, cmd := range []*cobra.Command{freeCmd, busyCmd, planCmd, unplanCmd} {
		addWindowFlags(cmd)
	}
	freeCmd.Flags().Int("block", 0, "Block size in minutes (default from config)")
	planCmd.Flags().Int("block", 0, "Block size in minutes (default from config)")
	planCmd.Flags().StringArray("task", nil, "Ad-hoc task as id=duration, repeatable (default: stored tasks without a planned block)")
	planCmd.Flags().Bool("apply", false, "Save the planned blocks")
	planCmd.Flags().Bool("review", false, "Review the plan interactively before saving")
	planCmd.Flags().String("ics", "", "Write the planned blocks to an iCalendar file")

	eventAddCmd.Flags().String("title", "", "Event title")
	eventAddCmd.Flags().String("from", "", "Start time")
	eventAddCmd.Flags().String("to", "", "End time")
	eventAddCmd.Flags().String("description", "", "Event description")
	eventAddCmd.MarkFlagRequired("title")
	eventAddCmd.MarkFlagRequired("from")
	eventAddCmd.MarkFlagRequired("to")
	eventListCmd.Flags().String("from", "", "Window start (default: start of today)")
	eventListCmd.Flags().String("to", "", "Window end (default: 30 days after today)")
	eventCmd.AddCommand(eventAddCmd, eventListCmd, eventRmCmd)

	taskAddCmd.Flags().String("title", "", "Task title")
	taskAddCmd.Flags().Int("minutes", 30, "Estimated duration in minutes")
	taskAddCmd.Flags().Int("position", 0, "Priority position, lower plans first")
	taskAddCmd.MarkFlagRequired("title")
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskRmCmd)

	unplanCmd.Flags().Int64("task", 0, "Only remove the blocks of this task id")

	importCmd.Flags().Int("days", 30, "Import events starting within this many days")

	rootCmd.AddCommand(freeCmd)
	rootCmd.AddCommand(busyCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(unplanCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Window start (default: start of work hours)")
	cmd.Flags().String("to", "", "Window end (default: end of work hours)")
}

func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.User.ID == "" {
		return nil, fmt.Errorf("user id not configured, run 'dailyroutine config' to set it up")
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*store.DB, error) {
	var (
		db  *store.DB
		err error
	)
	if cfg.Store.Path != "" {
		db, err = store.Open(cfg.Store.Path)
	} else {
		db, err = store.OpenDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newLogger()
	sched, err := scheduler.New(cfg, newService(cfg, db, logger), db, notify.New(cfg.Notifications.Enabled, logger), logger)
	if err != nil {
		return err
	}
	if path, err := config.ConfigPath(); err == nil {
		sched.WatchConfig(path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return sched.Run(ctx)
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := scheduler.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to dailyroutine (PID %d)\n", pid)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	today := dayRange(time.Now())
	blocks, err := db.ListBlocks(cmd.Context(), cfg.User.ID, today)
	if err != nil {
		return fmt.Errorf("fetching today's blocks: %w", err)
	}
	tasks, err := db.AllTasks(cmd.Context(), cfg.User.ID)
	if err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}
	titles := store.TaskTitles(tasks)

	if len(blocks) == 0 {
		fmt.Println("No blocks planned today.")
	} else {
		var total time.Duration
		fmt.Println("Today's blocks:")
		fmt.Println()
		for _, b := range blocks {
			title := titles[b.TaskID]
			if title == "" {
				title = "#" + b.TaskID
			}
			fmt.Printf("  %s–%s  %3dmin  %s\n",
				b.Start.Local().Format("15:04"),
				b.End.Local().Format("15:04"),
				int(b.End.Sub(b.Start).Minutes()),
				title,
			)
			total += b.End.Sub(b.Start)
		}
		fmt.Printf("\nTotal: %dh %dmin (%d blocks)\n", int(total.Hours()), int(total.Minutes())%60, len(blocks))
	}

	fmt.Printf("Pending tasks: %d\n", pendingCount(tasks))
	if last, err := scheduler.LastPlan(cmd.Context(), db); err == nil && !last.IsZero() {
		fmt.Printf("Last automatic plan: %s\n", last.Local().Format("Mon Jan 2 15:04"))
	}

	return nil
}

func pendingCount(tasks []store.Task) int {
	n := 0
	for _, t := range tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	editorPath, err := exec.LookPath(editor)
	if err != nil {
		fmt.Printf("Could not find editor. Config file is at: %s\n", configPath)
		return nil
	}
	process, err := os.StartProcess(editorPath, []string{editor, configPath}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
