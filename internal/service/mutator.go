package service

import (
	"fmt"
	"reflect"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/reconcile"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
)

// PreemptiveSplit returns copies of the stories where every task longer than
// the preemptive threshold is split into parts with suggested breaks.
// Tasks that are already parts are left alone.
func PreemptiveSplit(rules scheduler.Rules, stories []domain.Story) []domain.Story {
	limit := rules.PreemptiveSplitThreshold()
	out := domain.CloneStories(stories)
	for i := range out {
		tasks := make([]domain.Task, 0, len(out[i].Tasks))
		for _, t := range out[i].Tasks {
			if t.IsPart() || t.Duration <= limit {
				tasks = append(tasks, t)
				continue
			}
			tasks = append(tasks, scheduler.SplitTask(rules, t, limit, false)...)
		}
		out[i].Tasks = tasks
	}
	return out
}

// BuildMapping returns the caller's mapping followed by the title variants
// generators produce for split parts ("X - Part 2", "X Part 2 of 3",
// "X (Part 2/3)"), each pointing at the canonical part title. The bare
// original title maps to part 1.
func BuildMapping(stories []domain.Story, user []domain.StoryMapping) []domain.StoryMapping {
	out := make([]domain.StoryMapping, 0, len(user))
	seen := make(map[domain.StoryMapping]bool)
	add := func(possible, original string) {
		m := domain.StoryMapping{PossibleTitle: possible, OriginalTitle: original}
		if possible == "" || possible == original || seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
	}

	for _, m := range user {
		add(m.PossibleTitle, m.OriginalTitle)
	}
	for _, s := range stories {
		for _, t := range s.Tasks {
			if !t.IsPart() {
				continue
			}
			base, n, total := t.SplitInfo.OriginalTitle, t.SplitInfo.PartNumber, t.SplitInfo.TotalParts
			add(fmt.Sprintf("%s - Part %d", base, n), t.Title)
			add(fmt.Sprintf("%s Part %d of %d", base, n, total), t.Title)
			add(fmt.Sprintf("%s (Part %d/%d)", base, n, total), t.Title)
			if n == 1 {
				add(base, t.Title)
			}
		}
	}
	return out
}

// MutateForConstraint reworks the story named in a constraint failure (or
// every story when none can be identified): split parts are merged back,
// re-split at half the current largest task, and every task gets a forced
// long break after it. changed is false when the stories came out identical.
func MutateForConstraint(rules scheduler.Rules, stories []domain.Story, details map[string]any) ([]domain.Story, bool) {
	out := domain.CloneStories(stories)
	for _, idx := range targetStories(stories, details) {
		out[idx].Tasks = tightenTasks(rules, out[idx].Tasks)
	}
	return out, !reflect.DeepEqual(stories, out)
}

func targetStories(stories []domain.Story, details map[string]any) []int {
	if title, ok := details["block"].(string); ok && title != "" {
		titles := make([]string, len(stories))
		for i, s := range stories {
			titles[i] = s.Title
		}
		if m, err := reconcile.NewMatcher(titles, nil).Match(title); err == nil && !m.IsSentinel() {
			return []int{m.Index}
		}
	}
	all := make([]int, len(stories))
	for i := range stories {
		all[i] = i
	}
	return all
}

func tightenTasks(rules scheduler.Rules, tasks []domain.Task) []domain.Task {
	largest := 0
	for _, t := range tasks {
		largest = max(largest, t.Duration)
	}
	limit := max(rules.RoundDown(largest/2), rules.MinTaskDuration)

	var out []domain.Task
	for _, t := range mergeParts(tasks) {
		parts := scheduler.SplitTask(rules, t, limit, true)
		last := &parts[len(parts)-1]
		last.SuggestedBreaks = []domain.SuggestedBreak{{
			After:    last.Duration,
			Duration: rules.LongBreak,
			Reason:   "forced break",
		}}
		out = append(out, parts...)
	}
	return out
}

// mergeParts folds the parts of each split task back into one task at the
// position of its first part. Suggested breaks are dropped.
func mergeParts(tasks []domain.Task) []domain.Task {
	var out []domain.Task
	pos := make(map[string]int)
	for _, t := range tasks {
		t = t.Clone()
		t.SuggestedBreaks = nil
		if !t.IsPart() {
			out = append(out, t)
			continue
		}
		key := domain.CoalesceStr(t.SplitInfo.OriginalID, reconcile.Fold(t.SplitInfo.OriginalTitle))
		if i, ok := pos[key]; ok {
			out[i].Duration += t.Duration
			continue
		}
		t.ID = domain.CoalesceStr(t.SplitInfo.OriginalID, t.ID)
		t.Title = t.SplitInfo.OriginalTitle
		t.SplitInfo = nil
		pos[key] = len(out)
		out = append(out, t)
	}
	return out
}
