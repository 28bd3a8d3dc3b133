package notify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gen2brain/beeep"
)

const appName = "dailyroutine"

// Notifier sends desktop notifications when enabled.
type Notifier struct {
	enabled bool
	logger  *slog.Logger
	send    func(title, message string) error
}

func New(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{
		enabled: enabled,
		logger:  logger,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// PlanApplied reports how many tasks were scheduled. Delivery failures are
// logged and otherwise ignored.
func (n *Notifier) PlanApplied(placed, overflow int) {
	if !n.enabled {
		return
	}
	if err := n.send(appName, Summary(placed, overflow)); err != nil {
		n.logger.Warn("sending notification failed", "error", err)
	}
}

func Summary(placed, overflow int) string {
	msg := fmt.Sprintf("Scheduled %d %s", placed, plural(placed, "task", "tasks"))
	if overflow > 0 {
		msg += fmt.Sprintf(", %d did not fit", overflow)
	}
	return msg
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
