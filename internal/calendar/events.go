// Package calendar exports validated schedules to Google Calendar.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/domain"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	// RunProperty is the private extended property linking an event to the
	// run it was exported from.
	RunProperty = "timeboxer_run"
	boxProperty = "timeboxer_box"

	breakColorID = "8"
)

// Events converts every time box of s into one calendar event. Boxes
// without a start time are skipped.
func Events(runID string, s domain.Schedule, loc *time.Location) []*gcal.Event {
	if loc == nil {
		loc = time.UTC
	}
	var out []*gcal.Event
	for i, blk := range s.StoryBlocks {
		for j, b := range blk.TimeBoxes {
			if b.StartTime.IsZero() || b.Duration <= 0 {
				continue
			}
			ev := &gcal.Event{
				Summary:     eventSummary(blk.Title, b),
				Description: eventDescription(blk.Title, b),
				Start:       eventTime(b.StartTime, loc),
				End:         eventTime(b.EndTime(), loc),
				ExtendedProperties: &gcal.EventExtendedProperties{
					Private: map[string]string{
						RunProperty: runID,
						boxProperty: fmt.Sprintf("%d.%d", i, j),
					},
				},
				Transparency: "opaque",
			}
			if b.Type.IsBreak() {
				ev.ColorId = breakColorID
				ev.Transparency = "transparent"
			}
			out = append(out, ev)
		}
	}
	return out
}

func eventTime(t time.Time, loc *time.Location) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.In(loc).Format(time.RFC3339),
		TimeZone: loc.String(),
	}
}

func eventSummary(block string, b domain.TimeBox) string {
	switch b.Type {
	case domain.TimeBoxShortBreak:
		return "Short break"
	case domain.TimeBoxLongBreak:
		return "Long break"
	}
	if len(b.Tasks) == 1 {
		return b.Tasks[0].Title
	}
	return block
}

func eventDescription(block string, b domain.TimeBox) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d min)", block, b.Duration)
	for _, t := range b.Tasks {
		fmt.Fprintf(&sb, "\n- %s", t.Title)
		if t.Duration > 0 {
			fmt.Fprintf(&sb, " (%d min)", t.Duration)
		}
	}
	return sb.String()
}
