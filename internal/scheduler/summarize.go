package scheduler

import "github.com/alexanderramin/timeboxer/internal/domain"

// Durations is the work/break split of a sequence of time boxes.
type Durations struct {
	Work  int `json:"workDuration"`
	Break int `json:"breakDuration"`
	Total int `json:"totalDuration"`
}

// Summarize totals work and non-work minutes over boxes.
func Summarize(boxes []domain.TimeBox) Durations {
	var d Durations
	for _, b := range boxes {
		if b.Type.IsWork() {
			d.Work += b.Duration
		} else {
			d.Break += b.Duration
		}
	}
	d.Total = d.Work + d.Break
	return d
}

// SummarizeBlock is Summarize over a block's time boxes.
func SummarizeBlock(b domain.StoryBlock) Durations {
	return Summarize(b.TimeBoxes)
}

// Realized is the duration a block contributes to its story: its work time,
// or its total when it holds no work at all.
func (d Durations) Realized() int {
	if d.Work == 0 {
		return d.Total
	}
	return d.Work
}
