package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

type viewState int

const (
	reviewView viewState = iota
	applyingView
	confirmationView
)

// ApplyFunc persists accepted blocks.
type ApplyFunc func(ctx context.Context, blocks []planner.Block) error

type Result struct {
	Applied bool
	Aborted bool
}

type appliedMsg struct {
	err error
}

// App lets the user accept or discard a proposed plan.
type App struct {
	state   viewState
	spinner spinner.Model
	cursor  int
	result  *Result
	errMsg  string

	window timerange.Range
	plan   *planner.Result
	titles map[string]string
	apply  ApplyFunc
}

func NewApp(window timerange.Range, plan *planner.Result, titles map[string]string, apply ApplyFunc) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		state:   reviewView,
		spinner: s,
		window:  window,
		plan:    plan,
		titles:  titles,
		apply:   apply,
	}
}

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.result = &Result{Aborted: true}
			return a, tea.Quit
		}
	case appliedMsg:
		return a.handleApplied(msg)
	}

	switch a.state {
	case reviewView:
		return a.updateReview(msg)
	case applyingView:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	case confirmationView:
		if _, ok := msg.(tea.KeyMsg); ok {
			return a, tea.Quit
		}
	}

	return a, nil
}

func (a *App) View() string {
	switch a.state {
	case reviewView:
		return titleStyle.Render("Proposed plan") + "\n" +
			subtitleStyle.Render(formatWindow(a.window)) + "\n" +
			RenderPlan(a.plan, a.titles, a.cursor) +
			helpStyle.Render(a.help())
	case applyingView:
		return a.spinner.View() + " Saving blocks..."
	case confirmationView:
		if a.errMsg != "" {
			return errorStyle.Render("Error: ") + a.errMsg + "\n\n" + helpStyle.Render("Press any key to exit")
		}
		return successStyle.Render("Plan applied!") + "\n\n" + helpStyle.Render("Press any key to exit")
	}
	return ""
}

func (a *App) GetResult() *Result {
	return a.result
}

func (a *App) help() string {
	if len(a.plan.Blocks) == 0 {
		return "q: quit"
	}
	return "↑/↓: move • a/enter: apply • q: discard"
}

func (a *App) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}

	switch keyMsg.String() {
	case "a", "enter":
		if len(a.plan.Blocks) == 0 {
			return a, nil
		}
		a.state = applyingView
		return a, tea.Batch(a.spinner.Tick, a.applyBlocks())
	case "q", "esc":
		a.result = &Result{}
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.plan.Blocks)-1 {
			a.cursor++
		}
	}
	return a, nil
}

func (a *App) handleApplied(msg appliedMsg) (tea.Model, tea.Cmd) {
	a.state = confirmationView
	if msg.err != nil {
		a.errMsg = msg.err.Error()
		a.result = &Result{}
		return a, nil
	}
	a.result = &Result{Applied: true}
	return a, nil
}

func (a *App) applyBlocks() tea.Cmd {
	blocks := a.plan.Blocks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return appliedMsg{err: a.apply(ctx, blocks)}
	}
}
