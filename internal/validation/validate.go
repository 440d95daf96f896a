// Package validation checks a repaired schedule against the duration rules
// and the original task list.
package validation

import (
	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/reconcile"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
)

// MinCoverageRatio is the share of directly scheduled tasks above which a
// truncated tail of split parts is reported as a truncation rather than as
// dropped parts.
const MinCoverageRatio = 0.75

type Input struct {
	Rules    scheduler.Rules
	Stories  []domain.Story
	Mapping  []domain.StoryMapping
	Schedule domain.Schedule
}

type Result struct {
	Schedule    domain.Schedule
	Stories     []domain.Story
	Coverage    Coverage
	Suggestions []domain.Suggestion
}

// Validate asserts block duration closure, the work-time ceiling, story
// reconciliation and task coverage, in that order, and returns the first
// failure as a PipelineError. On success it returns copies of the schedule
// with a recomputed summary and of the stories with realised durations.
func Validate(in Input) (*Result, error) {
	s := in.Schedule.Clone()

	for i, blk := range s.StoryBlocks {
		if err := checkBlockDurations(i, blk); err != nil {
			return nil, err
		}
	}

	if v := scheduler.CheckSpacing(in.Rules, s); v != nil {
		return nil, app.NewPipelineError(app.ErrExcessiveWorkTime, map[string]any{
			"block":      v.BlockTitle,
			"blockIndex": v.BlockIndex,
			"timeBox": map[string]any{
				"index":     v.BoxIndex,
				"type":      v.Box.Type,
				"startTime": v.Box.StartTime,
				"duration":  v.Box.Duration,
			},
			"accumulated":      v.Accumulated,
			"limit":            v.Limit,
			"breaksSinceReset": v.BreaksSinceReset,
		}, "block %q accumulates %d minutes of work without a long break (limit %d)",
			v.BlockTitle, v.Accumulated, v.Limit)
	}

	stories, suggestions, err := reconcileStories(in, s)
	if err != nil {
		return nil, err
	}

	s.Summary = Summarize(s)

	cov := buildCoverage(in.Stories, in.Mapping, s, in.Rules.DurationTolerance)
	covSuggestion, err := classifyCoverage(in.Stories, cov)
	if err != nil {
		return nil, err
	}
	if covSuggestion != nil {
		suggestions = append(suggestions, *covSuggestion)
	}

	return &Result{Schedule: s, Stories: stories, Coverage: cov, Suggestions: suggestions}, nil
}

func checkBlockDurations(index int, blk domain.StoryBlock) error {
	for j, b := range blk.TimeBoxes {
		if b.Duration <= 0 {
			return app.NewPipelineError(app.ErrBlockDuration, map[string]any{
				"block":      blk.Title,
				"blockIndex": index,
				"boxIndex":   j,
				"duration":   b.Duration,
			}, "block %q has a %s box with non-positive duration %d", blk.Title, b.Type, b.Duration)
		}
	}
	d := scheduler.SummarizeBlock(blk)
	if blk.TotalDuration != d.Total {
		return app.NewPipelineError(app.ErrBlockDuration, map[string]any{
			"block":         blk.Title,
			"blockIndex":    index,
			"workDuration":  d.Work,
			"breakDuration": d.Break,
			"totalDuration": blk.TotalDuration,
		}, "block %q reports %d minutes but its boxes sum to %d work + %d break",
			blk.Title, blk.TotalDuration, d.Work, d.Break)
	}
	return nil
}

// reconcileStories maps every non-sentinel block to its story and rewrites
// the story's estimatedDuration with the realised minutes summed over all of
// its blocks.
func reconcileStories(in Input, s domain.Schedule) ([]domain.Story, []domain.Suggestion, error) {
	titles := make([]string, len(in.Stories))
	for i, st := range in.Stories {
		titles[i] = st.Title
	}
	matcher := reconcile.NewMatcher(titles, in.Mapping)

	realized := make([]int, len(in.Stories))
	matched := make([]bool, len(in.Stories))
	for i, blk := range s.StoryBlocks {
		m, err := matcher.Match(blk.Title)
		if err != nil {
			return nil, nil, app.NewPipelineError(app.ErrUnknownStory, map[string]any{
				"block":        blk.Title,
				"blockIndex":   i,
				"knownStories": titles,
			}, "block %q does not match any requested story", blk.Title)
		}
		if m.IsSentinel() {
			continue
		}
		realized[m.Index] += scheduler.SummarizeBlock(blk).Realized()
		matched[m.Index] = true
	}

	stories := domain.CloneStories(in.Stories)
	var suggestions []domain.Suggestion
	for i := range stories {
		if !matched[i] {
			continue
		}
		requested := stories[i].EstimatedDuration
		stories[i].EstimatedDuration = realized[i]
		if drift := realized[i] - requested; drift > in.Rules.DurationTolerance || -drift > in.Rules.DurationTolerance {
			suggestions = append(suggestions, domain.Suggestion{
				Type:    domain.SuggestionDurationAdjusted,
				Message: "scheduled time for \"" + stories[i].Title + "\" differs from the estimate",
				Details: map[string]any{
					"story":     stories[i].Title,
					"requested": requested,
					"scheduled": realized[i],
				},
			})
		}
	}
	return stories, suggestions, nil
}

// Summarize recomputes the schedule summary from its blocks.
func Summarize(s domain.Schedule) domain.ScheduleSummary {
	sum := domain.ScheduleSummary{StartTime: s.Summary.StartTime, EndTime: s.Summary.EndTime}
	first := true
	for _, blk := range s.StoryBlocks {
		sum.TotalDuration += blk.TotalDuration
		for _, b := range blk.TimeBoxes {
			if b.Type.IsWork() {
				sum.TotalSessions++
			}
			if b.StartTime.IsZero() {
				continue
			}
			if first || b.StartTime.Before(sum.StartTime) {
				sum.StartTime = b.StartTime
			}
			if first || b.EndTime().After(sum.EndTime) {
				sum.EndTime = b.EndTime()
			}
			first = false
		}
	}
	return sum
}

// classifyCoverage fails on tasks that no scheduled task covers, directly or
// through a sibling part. Sibling-covered parts pass; when their split was
// given less work than requested they surface as a suggestion.
func classifyCoverage(stories []domain.Story, cov Coverage) (*domain.Suggestion, error) {
	if len(cov.Missing) > 0 {
		details := map[string]any{
			"missingTasks":   titlesOf(cov.Missing),
			"missingCount":   len(cov.Missing),
			"scheduledCount": cov.Direct,
			"totalCount":     cov.Total,
		}
		if allParts(cov.Missing) {
			details["missingParts"] = cov.Missing
			return nil, app.NewPipelineError(app.ErrIncompletePartSequence, details,
				"%d parts of split tasks are missing from the schedule", len(cov.Missing))
		}
		return nil, app.NewPipelineError(app.ErrMissingTasks, details,
			"%d of %d tasks are missing from the schedule", len(cov.Missing), cov.Total)
	}
	if len(cov.Shortfall) == 0 {
		return nil, nil
	}

	ratio := cov.Ratio()
	truncated := tailOnly(stories, cov) && ratio >= MinCoverageRatio
	msg := "some parts of a split task received less time than requested"
	if truncated {
		msg = "the schedule ends before the last parts of a split task"
	}
	return &domain.Suggestion{
		Type:    domain.SuggestionPartialCoverage,
		Message: msg,
		Details: map[string]any{
			"unscheduledParts": titlesOf(cov.Shortfall),
			"coverageRatio":    ratio,
			"truncatedTail":    truncated,
		},
	}, nil
}
