package validation

import (
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/reconcile"
)

type CoverageSource string

const (
	CoveredDirect  CoverageSource = "direct"
	CoveredSibling CoverageSource = "sibling"
)

// TaskRef identifies an original task for coverage reporting.
type TaskRef struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	StoryTitle string `json:"storyTitle"`
	Duration   int    `json:"duration"`
	PartNumber int    `json:"partNumber,omitempty"`
	TotalParts int    `json:"totalParts,omitempty"`
	group      string
}

// Coverage is the reconciliation map from original tasks to the schedule.
// Inferred lists the parts covered through a sibling; Shortfall is the
// subset whose split received less scheduled work than it asked for.
type Coverage struct {
	Covered   map[string]CoverageSource
	Inferred  []TaskRef
	Shortfall []TaskRef
	Missing   []TaskRef
	Unmatched []string
	Direct    int
	Total     int
}

// Ratio is the share of original tasks matched directly by a scheduled task.
func (c Coverage) Ratio() float64 {
	if c.Total == 0 {
		return 1
	}
	return float64(c.Direct) / float64(c.Total)
}

func flattenTasks(stories []domain.Story) ([]TaskRef, []string) {
	var refs []TaskRef
	var titles []string
	for _, s := range stories {
		for _, t := range s.Tasks {
			ref := TaskRef{ID: t.ID, Title: t.Title, StoryTitle: s.Title, Duration: t.Duration}
			if t.IsPart() {
				ref.PartNumber = t.SplitInfo.PartNumber
				ref.TotalParts = t.SplitInfo.TotalParts
				ref.group = t.SplitInfo.OriginalID
				if ref.group == "" {
					ref.group = reconcile.Fold(t.SplitInfo.OriginalTitle)
				}
			}
			refs = append(refs, ref)
			titles = append(titles, t.Title)
		}
	}
	return refs, titles
}

// buildCoverage reconciles every scheduled task to an original task. A part
// of a split task that is not scheduled itself counts as covered when any
// sibling part is. Work scheduled against any part, "(continued)" segments
// included, is credited to the whole split; a split whose credited minutes
// fall short of its total by more than tolerance reports its sibling-covered
// parts as shortfall.
func buildCoverage(stories []domain.Story, mapping []domain.StoryMapping, s domain.Schedule, tolerance int) Coverage {
	refs, titles := flattenTasks(stories)
	matcher := reconcile.NewMatcher(titles, mapping)

	cov := Coverage{Covered: make(map[string]CoverageSource, len(refs)), Total: len(refs)}
	direct := make([]bool, len(refs))
	scheduled := make(map[string]int)
	touched := make(map[string]bool)

	for _, blk := range s.StoryBlocks {
		for _, box := range blk.TimeBoxes {
			if !box.Type.IsWork() {
				continue
			}
			for _, task := range box.Tasks {
				m, err := matcher.Match(task.Title)
				if err != nil || m.IsSentinel() {
					cov.Unmatched = append(cov.Unmatched, task.Title)
					continue
				}
				direct[m.Index] = true
				if g := refs[m.Index].group; g != "" {
					touched[g] = true
					scheduled[g] += taskMinutes(task, box)
				}
			}
		}
	}

	requested := make(map[string]int)
	for _, ref := range refs {
		if ref.group != "" {
			requested[ref.group] += ref.Duration
		}
	}

	for i, ref := range refs {
		switch {
		case direct[i]:
			cov.Covered[ref.ID] = CoveredDirect
			cov.Direct++
		case ref.group != "" && touched[ref.group]:
			cov.Covered[ref.ID] = CoveredSibling
			cov.Inferred = append(cov.Inferred, ref)
			if requested[ref.group]-scheduled[ref.group] > tolerance {
				cov.Shortfall = append(cov.Shortfall, ref)
			}
		default:
			cov.Missing = append(cov.Missing, ref)
		}
	}
	return cov
}

func taskMinutes(task domain.TimeBoxTask, box domain.TimeBox) int {
	if task.Duration > 0 {
		return task.Duration
	}
	if n := len(box.Tasks); n > 0 {
		return box.Duration / n
	}
	return 0
}

// tailOnly reports whether every shortfall part is numbered after every
// directly scheduled part of its split, i.e. the generator truncated the end
// of the sequence rather than dropping parts from the middle.
func tailOnly(stories []domain.Story, cov Coverage) bool {
	refs, _ := flattenTasks(stories)
	maxDirect := make(map[string]int)
	for _, ref := range refs {
		if ref.group == "" || cov.Covered[ref.ID] != CoveredDirect {
			continue
		}
		if ref.PartNumber > maxDirect[ref.group] {
			maxDirect[ref.group] = ref.PartNumber
		}
	}
	for _, ref := range cov.Shortfall {
		if ref.PartNumber <= maxDirect[ref.group] {
			return false
		}
	}
	return true
}

func allParts(refs []TaskRef) bool {
	for _, r := range refs {
		if r.group == "" {
			return false
		}
	}
	return true
}

func titlesOf(refs []TaskRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Title
	}
	return out
}
