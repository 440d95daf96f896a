package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
)

// FormatRunList renders archived runs, newest first as returned.
func FormatRunList(runs []app.RunSummary, now time.Time) string {
	if len(runs) == 0 {
		return Dim("No runs yet. Plan a day with `timeboxer plan stories.yaml`.") + "\n"
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			TruncID(r.ID),
			StatusPill(r.Status),
			fmt.Sprintf("%d", r.StoryCount),
			FormatMinutes(r.TotalMinutes),
			fmt.Sprintf("%d", r.AttemptCount),
			r.ErrorCode,
			HumanTimestamp(r.CreatedAt, now),
		})
	}
	return RenderTable([]string{"ID", "STATUS", "STORIES", "MINUTES", "ATTEMPTS", "ERROR", "CREATED"}, rows)
}

// FormatRunDetail renders one run with its attempt history. With raw set,
// each attempt's generator output is included.
func FormatRunDetail(d *app.RunDetail, raw bool, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	lines := []string{
		fmt.Sprintf("%s  %s", Dim("id      "), d.ID),
		fmt.Sprintf("%s  %s", Dim("status  "), StatusPill(d.Status)),
		fmt.Sprintf("%s  %d (%s)", Dim("stories "), d.StoryCount, FormatMinutes(d.TotalMinutes)),
		fmt.Sprintf("%s  %s", Dim("created "), d.CreatedAt.In(loc).Format(time.RFC3339)),
	}
	if d.ErrorCode != "" {
		lines = append(lines, fmt.Sprintf("%s  %s %s", Dim("error   "), StyleRed.Render(d.ErrorCode), d.ErrorMessage))
	}
	b.WriteString(RenderBox("Run", strings.Join(lines, "\n")))
	b.WriteString("\n\n")

	b.WriteString(Header("Attempts"))
	b.WriteString("\n")
	rows := make([][]string, 0, len(d.Attempts))
	for _, a := range d.Attempts {
		outcome := StyleGreen.Render("ok")
		if !a.Succeeded() {
			outcome = StyleRed.Render(a.ErrorCode)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", a.Number),
			outcome,
			fmt.Sprintf("%dms", a.LatencyMs),
			truncate(a.Message, 70),
		})
	}
	b.WriteString(RenderTable([]string{"#", "OUTCOME", "LATENCY", "MESSAGE"}, rows))

	if raw {
		for _, a := range d.Attempts {
			b.WriteString("\n")
			b.WriteString(Header(fmt.Sprintf("Attempt %d response", a.Number)))
			b.WriteString("\n")
			b.WriteString(a.RawResponse)
			b.WriteString("\n")
		}
	}

	if d.Schedule != nil {
		b.WriteString("\n")
		b.WriteString(FormatSchedule(&app.ScheduleResponse{Schedule: *d.Schedule}, loc))
	}
	return b.String()
}
