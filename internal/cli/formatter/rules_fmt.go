package formatter

import (
	"fmt"

	"github.com/alexanderramin/timeboxer/internal/scheduler"
)

// FormatRules lists the effective duration rules.
func FormatRules(r scheduler.Rules) string {
	rows := [][]string{
		{"task duration", fmt.Sprintf("%d–%d min", r.MinTaskDuration, r.MaxTaskDuration)},
		{"block size", fmt.Sprintf("%d min", r.BlockSize)},
		{"short break", fmt.Sprintf("%d min", r.ShortBreak)},
		{"long break", fmt.Sprintf("%d min", r.LongBreak)},
		{"debrief", fmt.Sprintf("%d min", r.Debrief)},
		{"work without break", fmt.Sprintf("%d min (+%d tolerance)", r.MaxWorkWithoutBreak, r.WorkTimeTolerance)},
		{"short break credit", fmt.Sprintf("%d min", r.ShortBreakWorkReduction)},
		{"split tasks above", fmt.Sprintf("%d min", r.PreemptiveSplitThreshold())},
		{"estimate drift", fmt.Sprintf("±%d min", r.DurationTolerance)},
		{"day ceiling", FormatMinutes(r.MaxScheduleMinutes)},
	}
	return RenderTable([]string{"RULE", "VALUE"}, rows)
}
