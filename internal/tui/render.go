package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

// RenderPlan formats placed blocks and overflow. cursor marks one block;
// pass -1 for none.
func RenderPlan(plan *planner.Result, titles map[string]string, cursor int) string {
	var b strings.Builder

	if len(plan.Blocks) == 0 {
		b.WriteString(dimStyle.Render("  No blocks placed.") + "\n")
	}
	for i, blk := range plan.Blocks {
		line := fmt.Sprintf("%s–%s  %3dmin  %s",
			blk.Start.Local().Format("Mon 15:04"),
			blk.End.Local().Format("15:04"),
			int(blk.End.Sub(blk.Start).Minutes()),
			taskLabel(blk.TaskID, titles),
		)
		if i == cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	if len(plan.Overflow) > 0 {
		b.WriteString("\n" + warningStyle.Render(fmt.Sprintf("Did not fit (%d):", len(plan.Overflow))) + "\n")
		for _, id := range plan.Overflow {
			b.WriteString("  " + taskLabel(id, titles) + "\n")
		}
	}

	return b.String()
}

// RenderRanges lists time ranges under a heading, with the total duration.
func RenderRanges(heading string, ranges []timerange.Range) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(heading) + "\n")

	if len(ranges) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n")
		return b.String()
	}

	var total time.Duration
	for _, r := range ranges {
		b.WriteString(fmt.Sprintf("  %s\n", formatWindow(r)))
		total += r.Duration()
	}
	b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("Total: %dh %dmin (%d ranges)",
		int(total.Hours()), int(total.Minutes())%60, len(ranges))) + "\n")
	return b.String()
}

func taskLabel(id string, titles map[string]string) string {
	if title, ok := titles[id]; ok && title != "" {
		return fmt.Sprintf("%s (#%s)", title, id)
	}
	return id
}

func formatWindow(r timerange.Range) string {
	start := r.Start.Local()
	end := r.End.Local()
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s–%s (%d min)", start.Format("Mon Jan 2 15:04"), end.Format("15:04"), int(r.Duration().Minutes()))
	}
	return fmt.Sprintf("%s – %s (%d min)", start.Format("Mon Jan 2 15:04"), end.Format("Mon Jan 2 15:04"), int(r.Duration().Minutes()))
}
