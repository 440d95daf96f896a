package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{StartTime: testStart, Rules: scheduler.DefaultRules()}
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestSchedule_Canonical(t *testing.T) {
	raw := decode(t, `{
		"summary": {"totalSessions": 2, "startTime": "2025-06-15T09:00:00Z", "endTime": "2025-06-15T10:05:00Z", "totalDuration": 65},
		"storyBlocks": [{
			"title": "Writing",
			"summary": "Draft the report",
			"icon": "pen",
			"totalDuration": 65,
			"timeBoxes": [
				{"type": "work", "startTime": "2025-06-15T09:00:00Z", "duration": 30, "tasks": [{"title": "Outline", "duration": 30, "taskCategory": "focus"}]},
				{"type": "short-break", "startTime": "2025-06-15T09:30:00Z", "duration": 5, "tasks": []},
				{"type": "work", "startTime": "2025-06-15T09:35:00Z", "duration": 30, "tasks": [{"title": "Draft", "duration": 30}]}
			]
		}]
	}`)

	res, err := Schedule(raw, testOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	s := res.Schedule
	require.Len(t, s.StoryBlocks, 1)
	blk := s.StoryBlocks[0]
	assert.Equal(t, "Writing", blk.Title)
	assert.Equal(t, "pen", blk.Icon)
	assert.Equal(t, 65, blk.TotalDuration)
	require.Len(t, blk.TimeBoxes, 3)
	assert.Equal(t, domain.TimeBoxShortBreak, blk.TimeBoxes[1].Type)
	assert.Equal(t, testStart.Add(35*time.Minute), blk.TimeBoxes[2].StartTime)
	assert.Equal(t, domain.CategoryFocus, blk.TimeBoxes[0].Tasks[0].TaskCategory)
	assert.Equal(t, 2, s.Summary.TotalSessions)
}

func TestBlocks_DropsNullEntries(t *testing.T) {
	raw := decode(t, `[null, {"title": "Writing", "timeBoxes": []}, 42]`).([]any)

	blocks, warnings, err := Blocks(raw, testOptions())

	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Writing", blocks[0].Title)
	require.Len(t, warnings, 2)
	assert.Equal(t, WarnDroppedEntry, warnings[0].Kind)
	assert.Equal(t, 0, warnings[0].Index)
	assert.Equal(t, 2, warnings[1].Index)
}

func TestBlocks_WrapsBareTimeBoxes(t *testing.T) {
	raw := decode(t, `[
		{"title": "Writing", "timeBoxes": [{"type": "work", "duration": 30, "tasks": [{"title": "Draft"}]}]},
		{"type": "work", "startTime": "2025-06-15T09:30:00Z", "duration": 25, "tasks": [{"title": "Email", "duration": 25}]},
		{"type": "long-break", "startTime": "2025-06-15T09:55:00Z", "duration": 15, "tasks": []}
	]`).([]any)

	blocks, warnings, err := Blocks(raw, testOptions())

	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, "Auto-Generated Block 2", blocks[1].Title)
	assert.Equal(t, 25, blocks[1].TotalDuration)
	require.Len(t, blocks[1].TimeBoxes, 1)
	assert.Equal(t, "Email", blocks[1].TimeBoxes[0].Tasks[0].Title)

	assert.Equal(t, "Break", blocks[2].Title)
	assert.Equal(t, domain.TimeBoxLongBreak, blocks[2].TimeBoxes[0].Type)

	wrapped := 0
	for _, w := range warnings {
		if w.Kind == WarnWrappedBox {
			wrapped++
		}
	}
	assert.Equal(t, 2, wrapped)
}

func TestBlocks_RepairsMissingTimeBoxes(t *testing.T) {
	raw := decode(t, `[{"summary": "no boxes"}, {"title": "Reading", "totalDuration": 40}]`).([]any)

	blocks, _, err := Blocks(raw, testOptions())

	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "Story Block 1", blocks[0].Title)
	assert.Empty(t, blocks[0].TimeBoxes)
	assert.NotNil(t, blocks[0].TimeBoxes)
	assert.Equal(t, 0, blocks[0].TotalDuration)
	assert.Equal(t, "Reading", blocks[1].Title)
	assert.Equal(t, 0, blocks[1].TotalDuration)
}

func TestBlocks_TaskAliases(t *testing.T) {
	raw := decode(t, `[{"title": "Writing", "timeBoxes": [
		{"type": "work", "duration": 30, "tasks": [{"title": "Draft", "duration": 30, "type": "Research", "project": "thesis"}]}
	]}]`).([]any)

	blocks, _, err := Blocks(raw, testOptions())

	require.NoError(t, err)
	task := blocks[0].TimeBoxes[0].Tasks[0]
	assert.Equal(t, domain.CategoryResearch, task.TaskCategory)
	assert.Equal(t, "thesis", task.ProjectType)
}

func TestBlocks_RoundsDurationsAndFillsStartTimes(t *testing.T) {
	raw := decode(t, `[{"title": "Writing", "timeBoxes": [
		{"type": "work", "duration": 28, "tasks": [{"title": "Draft"}]},
		{"type": "short_break", "duration": "5 min", "tasks": []},
		{"type": "work", "startTime": "10:00", "duration": 29.5, "tasks": [{"title": "Edit", "duration": 29.5}]}
	]}]`).([]any)

	blocks, _, err := Blocks(raw, testOptions())

	require.NoError(t, err)
	boxes := blocks[0].TimeBoxes
	require.Len(t, boxes, 3)
	assert.Equal(t, 30, boxes[0].Duration)
	assert.Equal(t, 30, boxes[0].Tasks[0].Duration, "single task inherits the box duration")
	assert.Equal(t, testStart, boxes[0].StartTime)
	assert.Equal(t, domain.TimeBoxShortBreak, boxes[1].Type)
	assert.Equal(t, 5, boxes[1].Duration)
	assert.Equal(t, testStart.Add(30*time.Minute), boxes[1].StartTime)
	assert.Equal(t, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), boxes[2].StartTime)
	assert.Equal(t, 30, boxes[2].Duration)
}

func TestBlocks_UnknownBoxTypeCoerced(t *testing.T) {
	raw := decode(t, `[{"title": "Writing", "timeBoxes": [
		{"type": "deep-work", "duration": 30, "tasks": [{"title": "Draft"}]},
		{"type": "snack", "duration": 10, "tasks": []}
	]}]`).([]any)

	blocks, warnings, err := Blocks(raw, testOptions())

	require.NoError(t, err)
	assert.Equal(t, domain.TimeBoxWork, blocks[0].TimeBoxes[0].Type)
	assert.Equal(t, domain.TimeBoxShortBreak, blocks[0].TimeBoxes[1].Type)
	assert.Len(t, warnings, 2)
}

func TestSchedule_RecoversRootShapes(t *testing.T) {
	cases := map[string]string{
		"bare array":    `[{"title": "Writing", "timeBoxes": []}]`,
		"wrapped":       `{"schedule": {"storyBlocks": [{"title": "Writing", "timeBoxes": []}]}}`,
		"single block":  `{"storyBlocks": {"title": "Writing", "timeBoxes": []}}`,
		"block at root": `{"title": "Writing", "timeBoxes": []}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := Schedule(decode(t, raw), testOptions())
			require.NoError(t, err)
			require.Len(t, res.Schedule.StoryBlocks, 1)
			assert.Equal(t, "Writing", res.Schedule.StoryBlocks[0].Title)
		})
	}
}

func TestSchedule_UnrecoverableStructure(t *testing.T) {
	cases := map[string]string{
		"no blocks":     `{"summary": {"totalDuration": 30}}`,
		"string blocks": `{"storyBlocks": "soon"}`,
		"all null":      `{"storyBlocks": [null, null]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Schedule(decode(t, raw), testOptions())
			require.Error(t, err)
			assert.Equal(t, app.ErrInvalidStructure, app.AsPipelineError(err).Code)
		})
	}
}

func TestSchedule_Idempotent(t *testing.T) {
	raw := decode(t, `{"storyBlocks": [
		null,
		{"title": "Writing", "timeBoxes": [
			{"type": "work", "duration": 28, "tasks": [{"title": "Draft", "type": "focus"}]},
			{"type": "break", "duration": 5, "tasks": []}
		]},
		{"type": "work", "startTime": "2025-06-15T11:00:00Z", "duration": 25, "tasks": [{"title": "Email", "duration": 25}]},
		{"summary": "empty"}
	]}`)

	first, err := Schedule(raw, testOptions())
	require.NoError(t, err)

	data, err := json.Marshal(first.Schedule)
	require.NoError(t, err)
	second, err := Schedule(decode(t, string(data)), testOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Schedule, second.Schedule)
	assert.Empty(t, second.Warnings)
}

func TestStoryAliases_CanonicalWins(t *testing.T) {
	in := map[string]any{
		"title":     "Writing",
		"type":      "flexible",
		"storyType": "timeboxed",
		"project":   "thesis",
		"tasks": []any{
			map[string]any{"title": "Draft", "type": "focus", "duration": "30"},
			nil,
		},
	}

	out := StoryAliases(in)

	assert.Equal(t, "timeboxed", out["storyType"])
	assert.NotContains(t, out, "type")
	assert.Equal(t, "thesis", out["projectType"])
	tasks := out["tasks"].([]any)
	require.Len(t, tasks, 1)
	task := tasks[0].(map[string]any)
	assert.Equal(t, "focus", task["taskCategory"])
	assert.Equal(t, 30, task["duration"])
	assert.Equal(t, "flexible", in["type"], "input is not modified")
}

func TestParseTime(t *testing.T) {
	assert.Equal(t, testStart, ParseTime("2025-06-15T09:00:00Z", time.Time{}))
	assert.Equal(t, testStart.Add(90*time.Minute), ParseTime("10:30", testStart))
	assert.Equal(t, time.Date(2025, 6, 15, 14, 15, 0, 0, time.UTC), ParseTime("2:15 PM", testStart))
	assert.True(t, ParseTime("soonish", testStart).IsZero())
	assert.True(t, ParseTime("10:30", time.Time{}).IsZero())
}
