package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
)

// FormatSchedule renders a validated schedule as a timeline, one section per
// story block, followed by the summary and any suggestions.
func FormatSchedule(resp *app.ScheduleResponse, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	s := resp.Schedule

	var b strings.Builder
	for _, blk := range s.StoryBlocks {
		b.WriteString(blockHeader(blk))
		for _, box := range blk.TimeBoxes {
			b.WriteString(boxLine(box, loc))
		}
		b.WriteString("\n")
	}

	sum := s.Summary
	lines := []string{
		fmt.Sprintf("%s  %s", Dim("window  "), ClockRange(sum.StartTime.In(loc), int(sum.EndTime.Sub(sum.StartTime).Minutes()))),
		fmt.Sprintf("%s  %s", Dim("total   "), FormatMinutes(sum.TotalDuration)),
		fmt.Sprintf("%s  %d", Dim("sessions"), sum.TotalSessions),
	}
	if resp.RunID != "" {
		attempts := fmt.Sprintf("%d", resp.Attempts)
		if resp.Cached {
			attempts = "cached"
		}
		lines = append(lines,
			fmt.Sprintf("%s  %s", Dim("run     "), resp.RunID),
			fmt.Sprintf("%s  %s", Dim("attempts"), attempts),
		)
	}
	b.WriteString(RenderBox("Summary", strings.Join(lines, "\n")))
	b.WriteString("\n")

	if len(resp.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatSuggestions(resp.Suggestions))
	}
	return b.String()
}

func blockHeader(blk domain.StoryBlock) string {
	title := blk.Title
	if blk.Icon != "" {
		title = blk.Icon + " " + title
	}
	return fmt.Sprintf("%s %s\n", Bold(title), Dim("("+FormatMinutes(blk.TotalDuration)+")"))
}

func boxLine(box domain.TimeBox, loc *time.Location) string {
	start := box.StartTime
	if !start.IsZero() {
		start = start.In(loc)
	}
	var titles []string
	for _, t := range box.Tasks {
		titles = append(titles, t.Title)
	}
	return fmt.Sprintf("  %s  %s %6s  %s\n",
		Dim(ClockRange(start, box.Duration)),
		BoxLabel(box.Type),
		FormatMinutes(box.Duration),
		truncate(strings.Join(titles, ", "), 60),
	)
}

// FormatSuggestions lists soft warnings attached to a schedule.
func FormatSuggestions(suggestions []domain.Suggestion) string {
	var b strings.Builder
	b.WriteString(Header("Suggestions"))
	b.WriteString("\n")
	for _, s := range suggestions {
		fmt.Fprintf(&b, "%s %s %s\n", StyleYellow.Render("▲"), StyleYellow.Render(string(s.Type)), s.Message)
		b.WriteString(FormatDetails(s.Details, "    "))
	}
	return b.String()
}

// FormatPipelineError renders a failed plan for the terminal.
func FormatPipelineError(err error) string {
	pe := app.AsPipelineError(err)
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", StyleRed.Render("✖ "+string(pe.Code)), pe.Message)
	b.WriteString(FormatDetails(pe.Details, "    "))
	return b.String()
}
