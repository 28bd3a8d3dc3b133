package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/leo2971998/DailyRoutine/internal/planner"
)

const productID = "-//dailyroutine//planner//EN"

// blockNamespace seeds BlockUID. The same block always gets the same UID.
var blockNamespace = uuid.MustParse("6f1c2d8e-3b4a-4e55-9a61-2f7d0c9b8e14")

// ErrNoBlocks is returned by ExportBlocks when there is nothing to write. A
// VCALENDAR without components is not valid iCalendar.
var ErrNoBlocks = errors.New("no blocks to export")

// ExportBlocks writes planned blocks as a VCALENDAR with one VEVENT per
// block. titles maps task ids to summaries; missing ids fall back to the id.
func ExportBlocks(w io.Writer, blocks []planner.Block, titles map[string]string, now time.Time) error {
	if len(blocks) == 0 {
		return ErrNoBlocks
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, b := range blocks {
		summary := titles[b.TaskID]
		if summary == "" {
			summary = "Task " + b.TaskID
		}

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, BlockUID(b))
		event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, b.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, b.End.UTC())
		event.Props.SetText(ical.PropSummary, summary)
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

// BlockUID derives a stable UID from the task id and slot.
func BlockUID(b planner.Block) string {
	key := fmt.Sprintf("%s|%d|%d", b.TaskID, b.Start.Unix(), b.End.Unix())
	return uuid.NewSHA1(blockNamespace, []byte(key)).String() + "@dailyroutine"
}
