package scheduler

import (
	"fmt"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/reconcile"
)

// SplitDuration divides total into the fewest parts no longer than limit,
// balanced to block multiples. The parts always sum to total exactly; only
// the last part may be off-grid when total itself is.
func SplitDuration(total, limit, block int) []int {
	if total <= 0 {
		return nil
	}
	if limit <= 0 || total <= limit {
		return []int{total}
	}
	if block <= 0 {
		block = 1
	}
	n := (total + limit - 1) / limit
	units := total / block
	leftover := total - units*block
	if units < n {
		// Too few whole blocks to spread; fall back to one part per block.
		n = units
		if n == 0 {
			return []int{total}
		}
	}
	per, rem := units/n, units%n
	parts := make([]int, n)
	for i := range parts {
		u := per
		if i < rem {
			u++
		}
		parts[i] = u * block
	}
	parts[n-1] += leftover
	return parts
}

// SplitTask breaks t into parts no longer than limit. Every part gets a
// derived id, a "(Part i of n)" title, SplitInfo pointing back at t and a
// suggested break after it, except the last. Breaks are short unless the
// parts since the previous long break would run past MaxWorkWithoutBreak,
// or forceLong is set. A task that already fits is returned alone, unchanged.
func SplitTask(rules Rules, t domain.Task, limit int, forceLong bool) []domain.Task {
	durations := SplitDuration(t.Duration, limit, rules.BlockSize)
	if len(durations) <= 1 {
		return []domain.Task{t.Clone()}
	}

	parts := make([]domain.Task, len(durations))
	run := 0
	for i, d := range durations {
		p := t.Clone()
		p.ID = fmt.Sprintf("%s-part-%d", t.ID, i+1)
		p.Title = reconcile.PartTitle(t.Title, i+1, len(durations))
		p.Duration = d
		p.SplitInfo = &domain.SplitInfo{
			OriginalTitle: t.Title,
			OriginalID:    t.ID,
			PartNumber:    i + 1,
			TotalParts:    len(durations),
		}
		p.SuggestedBreaks = nil

		run += d
		if i < len(durations)-1 {
			long := forceLong || run+durations[i+1] > rules.MaxWorkWithoutBreak
			br := domain.SuggestedBreak{After: d, Duration: rules.BreakDuration(long), Reason: "between parts"}
			if long {
				br.Reason = "long break between parts"
				run = 0
			}
			p.SuggestedBreaks = []domain.SuggestedBreak{br}
		}
		parts[i] = p
	}
	return parts
}
