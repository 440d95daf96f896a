package validation

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/alexanderramin/timeboxer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code app.ErrorCode) *app.PipelineError {
	t.Helper()
	require.Error(t, err)
	pe := app.AsPipelineError(err)
	require.Equal(t, code, pe.Code, "unexpected error: %v", err)
	return pe
}

func twoStories() []domain.Story {
	return []domain.Story{
		testutil.NewTestStoryWithTasks("Quarterly report", "Collect figures", "Write summary"),
		testutil.NewTestStoryWithTasks("Inbox zero", "Triage email", "Reply to clients"),
	}
}

func TestValidate_AcceptsWellFormedSchedule(t *testing.T) {
	stories := twoStories()
	s := testutil.LayoutSchedule(stories, testutil.FixedStart)

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})
	require.NoError(t, err)

	assert.Empty(t, res.Suggestions)
	assert.Empty(t, res.Coverage.Missing)
	assert.Equal(t, 4, res.Coverage.Direct)
	assert.InDelta(t, 1.0, res.Coverage.Ratio(), 0.0001)
	assert.Equal(t, 4, res.Schedule.Summary.TotalSessions)
	assert.Equal(t, s.Summary.TotalDuration, res.Schedule.Summary.TotalDuration)
	assert.Equal(t, 60, res.Stories[0].EstimatedDuration)
	assert.Equal(t, 60, res.Stories[1].EstimatedDuration)
}

func TestValidate_RecomputesSummary(t *testing.T) {
	stories := twoStories()
	s := testutil.LayoutSchedule(stories, testutil.FixedStart)
	want := s.Summary
	s.Summary = domain.ScheduleSummary{TotalSessions: 99, TotalDuration: 7}

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})
	require.NoError(t, err)

	assert.Equal(t, want.TotalSessions, res.Schedule.Summary.TotalSessions)
	assert.Equal(t, want.TotalDuration, res.Schedule.Summary.TotalDuration)
	assert.True(t, want.StartTime.Equal(res.Schedule.Summary.StartTime))
	assert.True(t, want.EndTime.Equal(res.Schedule.Summary.EndTime))
	assert.Equal(t, 99, s.Summary.TotalSessions, "input must not be mutated")
}

func TestValidate_BlockTotalMismatch(t *testing.T) {
	stories := twoStories()
	s := testutil.LayoutSchedule(stories, testutil.FixedStart)
	s.StoryBlocks[1].TotalDuration += 5

	_, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})

	pe := requireCode(t, err, app.ErrBlockDuration)
	assert.Equal(t, "Inbox zero", pe.Details["block"])
	assert.Equal(t, 60, pe.Details["workDuration"])
}

func TestValidate_NonPositiveBoxDuration(t *testing.T) {
	stories := twoStories()
	s := testutil.LayoutSchedule(stories, testutil.FixedStart)
	s.StoryBlocks[0].TimeBoxes[1].Duration = 0

	_, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})

	pe := requireCode(t, err, app.ErrBlockDuration)
	assert.Equal(t, 1, pe.Details["boxIndex"])
}

func TestValidate_PureBreakBlockIsAllowed(t *testing.T) {
	stories := twoStories()
	s := testutil.LayoutSchedule(stories, testutil.FixedStart)
	s.StoryBlocks = append(s.StoryBlocks, testutil.NewTestBlock("Break",
		testutil.BreakBox(domain.TimeBoxLongBreak, 15)))

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})
	require.NoError(t, err)
	assert.Len(t, res.Schedule.StoryBlocks, 3)
}

func TestValidate_ExcessiveWorkTime(t *testing.T) {
	stories := []domain.Story{testutil.NewTestStory("Deep work", testutil.WithTasks(
		testutil.NewTestTask("Design API", testutil.WithDuration(60)),
		testutil.NewTestTask("Implement API", testutil.WithDuration(60)),
	))}
	s := testutil.NewTestSchedule(testutil.FixedStart, testutil.NewTestBlock("Deep work",
		testutil.WorkBox(60, "Design API"),
		testutil.WorkBox(60, "Implement API"),
	))

	_, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})

	pe := requireCode(t, err, app.ErrExcessiveWorkTime)
	assert.Equal(t, "Deep work", pe.Details["block"])
	assert.Equal(t, 120, pe.Details["accumulated"])
	assert.Equal(t, 95, pe.Details["limit"])
	assert.True(t, pe.Code.NeedsMutation())
}

func TestValidate_UnknownStory(t *testing.T) {
	stories := twoStories()
	s := testutil.LayoutSchedule(stories, testutil.FixedStart)
	s.StoryBlocks[0].Title = "Gardening"

	_, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})

	pe := requireCode(t, err, app.ErrUnknownStory)
	assert.Equal(t, "Gardening", pe.Details["block"])
	assert.Equal(t, []string{"Quarterly report", "Inbox zero"}, pe.Details["knownStories"])
}

func TestValidate_MappingResolvesRenamedBlock(t *testing.T) {
	stories := twoStories()
	s := testutil.LayoutSchedule(stories, testutil.FixedStart)
	s.StoryBlocks[0].Title = "Q3 numbers"
	mapping := []domain.StoryMapping{{PossibleTitle: "Q3 numbers", OriginalTitle: "Quarterly report"}}

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Mapping: mapping, Schedule: s})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Stories[0].EstimatedDuration)
}

func TestValidate_SentinelBlocksStillCoverTheirTasks(t *testing.T) {
	stories := []domain.Story{testutil.NewTestStoryWithTasks("Inbox zero", "Triage email", "Reply to clients")}
	s := testutil.NewTestSchedule(testutil.FixedStart,
		testutil.NewTestBlock("Inbox zero", testutil.WorkBox(30, "Triage email")),
		testutil.NewTestBlock("Break", testutil.BreakBox(domain.TimeBoxShortBreak, 5)),
		testutil.NewTestBlock("Auto-Generated Block 3", testutil.WorkBox(30, "Reply to clients")),
	)

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Coverage.Direct)
	require.Len(t, res.Suggestions, 1, "only half the story's minutes land in its own block")
	assert.Equal(t, domain.SuggestionDurationAdjusted, res.Suggestions[0].Type)
}

func TestValidate_MissingTasksListsExactlyTheDroppedTitles(t *testing.T) {
	titles := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel", "India", "Juliet"}
	var tasks []domain.Task
	for _, title := range titles {
		tasks = append(tasks, testutil.NewTestTask(title, testutil.WithDuration(10)))
	}
	full := []domain.Story{testutil.NewTestStory("Checklist", testutil.WithTasks(tasks...))}
	partial := []domain.Story{testutil.NewTestStory("Checklist", testutil.WithTasks(tasks[:6]...))}
	s := testutil.LayoutSchedule(partial, testutil.FixedStart)

	_, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: full, Schedule: s})

	pe := requireCode(t, err, app.ErrMissingTasks)
	assert.Equal(t, []string{"Golf", "Hotel", "India", "Juliet"}, pe.Details["missingTasks"])
	assert.Equal(t, 4, pe.Details["missingCount"])
	assert.Equal(t, 6, pe.Details["scheduledCount"])
	assert.Equal(t, 10, pe.Details["totalCount"])
	assert.False(t, pe.Code.Retryable())
}

func splitStory(extra int, scheduledParts ...int) ([]domain.Story, []domain.Story) {
	var tasks []domain.Task
	for i := 0; i < extra; i++ {
		tasks = append(tasks, testutil.NewTestTask(fmt.Sprintf("Chore %c", 'A'+i), testutil.WithDuration(10)))
	}
	var parts []domain.Task
	for n := 1; n <= 3; n++ {
		parts = append(parts, testutil.NewTestTask(
			fmt.Sprintf("Write thesis (Part %d of 3)", n),
			testutil.WithDuration(30),
			testutil.AsPart("Write thesis", "thesis", n, 3),
		))
	}
	all := append(append([]domain.Task{}, tasks...), parts...)
	scheduled := append([]domain.Task{}, tasks...)
	for _, n := range scheduledParts {
		scheduled = append(scheduled, parts[n-1])
	}
	return []domain.Story{testutil.NewTestStory("Thesis", testutil.WithTasks(all...))},
		[]domain.Story{testutil.NewTestStory("Thesis", testutil.WithTasks(scheduled...))}
}

func partialCoverage(t *testing.T, res *Result) *domain.Suggestion {
	t.Helper()
	for i := range res.Suggestions {
		if res.Suggestions[i].Type == domain.SuggestionPartialCoverage {
			return &res.Suggestions[i]
		}
	}
	return nil
}

func TestValidate_TruncatedTailWithHighCoverageIsASuggestion(t *testing.T) {
	full, scheduled := splitStory(6, 1, 2)
	s := testutil.LayoutSchedule(scheduled, testutil.FixedStart)

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: full, Schedule: s})
	require.NoError(t, err)

	partial := partialCoverage(t, res)
	require.NotNil(t, partial)
	assert.Equal(t, []string{"Write thesis (Part 3 of 3)"}, partial.Details["unscheduledParts"])
	assert.Equal(t, true, partial.Details["truncatedTail"])
	require.Len(t, res.Coverage.Inferred, 1)
	assert.Equal(t, 3, res.Coverage.Inferred[0].PartNumber)
	assert.Equal(t, CoveredSibling, res.Coverage.Covered[res.Coverage.Inferred[0].ID])
}

func TestValidate_DroppedMiddlePartIsCoveredBySiblings(t *testing.T) {
	full, scheduled := splitStory(6, 1, 3)
	s := testutil.LayoutSchedule(scheduled, testutil.FixedStart)

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: full, Schedule: s})
	require.NoError(t, err)

	assert.Empty(t, res.Coverage.Missing)
	partial := partialCoverage(t, res)
	require.NotNil(t, partial)
	assert.Equal(t, []string{"Write thesis (Part 2 of 3)"}, partial.Details["unscheduledParts"])
	assert.Equal(t, false, partial.Details["truncatedTail"])
}

func TestValidate_SingleScheduledPartCoversItsSiblingsAtLowRatio(t *testing.T) {
	full, scheduled := splitStory(0, 1)
	s := testutil.LayoutSchedule(scheduled, testutil.FixedStart)

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: full, Schedule: s})
	require.NoError(t, err)

	assert.Len(t, res.Coverage.Covered, 3)
	assert.Equal(t, 1, res.Coverage.Direct)
	assert.Len(t, res.Coverage.Shortfall, 2)
	partial := partialCoverage(t, res)
	require.NotNil(t, partial)
	assert.Equal(t, false, partial.Details["truncatedTail"])
}

func TestValidate_UntouchedSplitIsIncompleteSequence(t *testing.T) {
	full, scheduled := splitStory(2)
	s := testutil.LayoutSchedule(scheduled, testutil.FixedStart)

	_, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: full, Schedule: s})

	pe := requireCode(t, err, app.ErrIncompletePartSequence)
	assert.Equal(t, 3, pe.Details["missingCount"])
	assert.Equal(t, 2, pe.Details["scheduledCount"])
}

func TestValidate_MissingPlainTaskBesidePartsIsMissingTasks(t *testing.T) {
	full, _ := splitStory(2)
	var kept []domain.Task
	for _, task := range full[0].Tasks {
		if task.IsPart() {
			kept = append(kept, task)
		}
	}
	s := testutil.LayoutSchedule([]domain.Story{testutil.NewTestStory("Thesis", testutil.WithTasks(kept...))}, testutil.FixedStart)

	_, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: full, Schedule: s})

	pe := requireCode(t, err, app.ErrMissingTasks)
	assert.Equal(t, 2, pe.Details["missingCount"])
}

func TestValidate_UnsplitOriginalCoversEveryPart(t *testing.T) {
	full, _ := splitStory(0)
	s := testutil.NewTestSchedule(testutil.FixedStart, testutil.NewTestBlock("Thesis",
		testutil.WorkBox(60, "Write thesis"),
		testutil.BreakBox(domain.TimeBoxLongBreak, 15),
		testutil.WorkBox(30, "Write thesis (continued)"),
	))

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: full, Schedule: s})
	require.NoError(t, err)

	assert.Len(t, res.Coverage.Covered, 3)
	assert.Empty(t, res.Coverage.Shortfall)
	assert.Nil(t, partialCoverage(t, res))
}

func TestValidate_RenamedPartsOfSplitTaskMatchByNumber(t *testing.T) {
	rules := scheduler.DefaultRules()
	report := testutil.NewTestTask("Write the quarterly report", testutil.WithDuration(120))
	parts := scheduler.SplitTask(rules, report, 45, false)
	require.Len(t, parts, 3)

	renamed := make([]domain.Task, len(parts))
	for i, p := range parts {
		renamed[i] = p.Clone()
		renamed[i].Title = fmt.Sprintf("Write quarterly report (Part %d of 3)", i+1)
	}
	full := []domain.Story{testutil.NewTestStory("Quarterly report", testutil.WithTasks(parts...))}
	s := testutil.LayoutSchedule([]domain.Story{testutil.NewTestStory("Quarterly report", testutil.WithTasks(renamed...))}, testutil.FixedStart)

	res, err := Validate(Input{Rules: rules, Stories: full, Schedule: s})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Coverage.Direct)
	for _, p := range parts {
		assert.Equal(t, CoveredDirect, res.Coverage.Covered[p.ID], p.Title)
	}
	assert.Nil(t, partialCoverage(t, res))
}

func TestValidate_GeneratorSplitOfUnsplitTaskCoversIt(t *testing.T) {
	stories := []domain.Story{testutil.NewTestStory("Thesis", testutil.WithTasks(
		testutil.NewTestTask("Write thesis", testutil.WithDuration(60)),
	))}
	s := testutil.NewTestSchedule(testutil.FixedStart, testutil.NewTestBlock("Thesis",
		testutil.WorkBox(30, "Write thesis (Part 1 of 2)"),
		testutil.BreakBox(domain.TimeBoxShortBreak, 5),
		testutil.WorkBox(30, "Write thesis (Part 2 of 2)"),
	))

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})
	require.NoError(t, err)
	assert.Equal(t, CoveredDirect, res.Coverage.Covered[stories[0].Tasks[0].ID])
}

func TestValidate_DurationDriftProducesSuggestion(t *testing.T) {
	stories := []domain.Story{testutil.NewTestStory("Inbox zero",
		testutil.WithTasks(testutil.NewTestTask("Triage email")),
		testutil.WithEstimate(90),
	)}
	s := testutil.LayoutSchedule(stories, testutil.FixedStart)

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})
	require.NoError(t, err)

	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, domain.SuggestionDurationAdjusted, res.Suggestions[0].Type)
	assert.Equal(t, 90, res.Suggestions[0].Details["requested"])
	assert.Equal(t, 30, res.Suggestions[0].Details["scheduled"])
	assert.Equal(t, 30, res.Stories[0].EstimatedDuration)
	assert.Equal(t, 90, stories[0].EstimatedDuration)
}

func TestValidate_UnmatchedScheduledTasksAreCountedNotRejected(t *testing.T) {
	stories := []domain.Story{testutil.NewTestStoryWithTasks("Inbox zero", "Triage email")}
	s := testutil.NewTestSchedule(testutil.FixedStart, testutil.NewTestBlock("Inbox zero",
		testutil.WorkBox(30, "Triage email"),
		testutil.BreakBox(domain.TimeBoxShortBreak, 5),
		testutil.WorkBox(10, "Stretch"),
	))

	res, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: stories, Schedule: s})
	require.NoError(t, err)
	assert.Equal(t, []string{"Stretch"}, res.Coverage.Unmatched)
}

// TestValidate_Invariant_EveryTaskCoveredOrMissing drops random tasks from a
// laid-out schedule and checks the coverage map accounts for every task.
func TestValidate_Invariant_EveryTaskCoveredOrMissing(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"Plan", "Draft", "Review", "Ship", "Test", "Audit", "Sketch", "Polish"}

	for trial := 0; trial < 100; trial++ {
		var tasks, kept []domain.Task
		n := rng.Intn(len(words)) + 1
		for i := 0; i < n; i++ {
			task := testutil.NewTestTask(words[i], testutil.WithDuration(5*(rng.Intn(6)+1)))
			tasks = append(tasks, task)
			if rng.Intn(3) > 0 {
				kept = append(kept, task)
			}
		}
		if len(kept) == 0 {
			kept = tasks[:1]
		}
		full := []domain.Story{testutil.NewTestStory("Sprint", testutil.WithTasks(tasks...))}
		s := testutil.LayoutSchedule([]domain.Story{testutil.NewTestStory("Sprint", testutil.WithTasks(kept...))}, testutil.FixedStart)

		cov := buildCoverage(full, nil, s, scheduler.DefaultRules().DurationTolerance)
		for _, task := range tasks {
			_, covered := cov.Covered[task.ID]
			missing := false
			for _, m := range cov.Missing {
				if m.ID == task.ID {
					missing = true
				}
			}
			assert.True(t, covered != missing, "trial %d: task %q must be covered xor missing", trial, task.Title)
		}

		_, err := Validate(Input{Rules: scheduler.DefaultRules(), Stories: full, Schedule: s})
		if len(kept) < len(tasks) {
			requireCode(t, err, app.ErrMissingTasks)
		} else {
			assert.NoError(t, err, "trial %d", trial)
		}
	}
}
