package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/calendar"
	"github.com/alexanderramin/timeboxer/internal/config"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/logger"
	"github.com/alexanderramin/timeboxer/internal/repository"
	"github.com/alexanderramin/timeboxer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 16, 8, 30, 0, 0, time.UTC)

type fakePlanner struct {
	got    app.ScheduleRequest
	calls  int
	events []app.AttemptEvent
	err    error
}

func (f *fakePlanner) Plan(_ context.Context, req app.ScheduleRequest, progress app.ProgressFunc) (*app.ScheduleResponse, error) {
	f.calls++
	f.got = req
	for _, ev := range f.events {
		if progress != nil {
			progress(ev)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &app.ScheduleResponse{
		RunID:    "run-42",
		Schedule: testutil.LayoutSchedule(req.Stories, req.StartTime),
		Attempts: len(f.events)/2 + 1,
	}, nil
}

type fakeRuns struct {
	runs []app.RunSummary
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]app.RunSummary, error) {
	return f.runs[:min(limit, len(f.runs))], nil
}

func (f *fakeRuns) GetRun(_ context.Context, id string) (*app.RunDetail, error) {
	for _, r := range f.runs {
		if r.ID == id {
			return &app.RunDetail{RunSummary: r, Attempts: []domain.RunAttempt{{Number: 1, RawResponse: "{}"}}}, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeExport struct {
	runID string
	n     int
}

func (f *fakeExport) ExportRun(_ context.Context, runID string) (int, error) {
	f.runID = runID
	return f.n, nil
}

type harness struct {
	plan    *fakePlanner
	runs    *fakeRuns
	export  *fakeExport
	cfg     config.Config
	loads   int
	closed  bool
	loadErr error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("TIMEBOXER_HOME", t.TempDir())
	return &harness{
		plan: &fakePlanner{},
		runs: &fakeRuns{runs: []app.RunSummary{
			{ID: "run-1", Status: domain.RunSucceeded, StoryCount: 1, TotalMinutes: 60, AttemptCount: 1, CreatedAt: testNow.Add(-time.Hour)},
			{ID: "run-2", Status: domain.RunFailed, ErrorCode: "MISSING_TASKS", AttemptCount: 3, CreatedAt: testNow.Add(-2 * time.Hour)},
		}},
		export: &fakeExport{n: 4},
		cfg:    config.Default(),
	}
}

func (h *harness) app(in string) (*App, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	a := &App{
		Load: func(string) (*Runtime, error) {
			h.loads++
			if h.loadErr != nil {
				return nil, h.loadErr
			}
			return &Runtime{
				Config: h.cfg,
				Plan:   h.plan,
				Runs:   h.runs,
				Log:    logger.Nop(),
				Export: func(context.Context) (app.CalendarExportUseCase, error) {
					return h.export, nil
				},
				Close: func() error { h.closed = true; return nil },
			}, nil
		},
		Now: func() time.Time { return testNow },
		In:  strings.NewReader(in),
		Out: out,
		Err: errOut,
	}
	return a, out, errOut
}

func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return h.runWithInput(t, "", args...)
}

func (h *harness) runWithInput(t *testing.T, in string, args ...string) (string, string, error) {
	t.Helper()
	a, out, errOut := h.app(in)
	err := Execute(context.Background(), a, args)
	return out.String(), errOut.String(), err
}

func writeStories(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const storiesJSON = `{
  "startTime": "2025-06-16T09:00:00Z",
  "stories": [
    {"title": "Deep work", "tasks": [
      {"title": "Write design", "duration": 40},
      {"title": "Prototype", "duration": 100}
    ]},
    {"title": "Admin", "type": "flexible", "tasks": [{"title": "Inbox", "duration": 22}]}
  ]
}`

func TestPlan_RendersSchedule(t *testing.T) {
	h := newHarness(t)
	path := writeStories(t, "stories.json", storiesJSON)

	out, _, err := h.run(t, "plan", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Deep work")
	assert.Contains(t, out, "Write design")
	assert.Contains(t, out, "Inbox")
	assert.Contains(t, out, "run-42")

	require.Equal(t, 1, h.plan.calls)
	req := h.plan.got
	assert.Equal(t, time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC), req.StartTime.UTC())
	require.Len(t, req.Stories, 2)
	assert.Equal(t, 25, req.Stories[1].Tasks[0].Duration, "rounded up to the block size")
	assert.False(t, req.NoCache)
	assert.True(t, h.closed)
}

func TestPlan_StartAndNoCacheFlags(t *testing.T) {
	h := newHarness(t)
	path := writeStories(t, "stories.json", storiesJSON)

	_, _, err := h.run(t, "plan", path, "--start", "13:15", "--no-cache")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 16, 13, 15, 0, 0, time.UTC), h.plan.got.StartTime)
	assert.True(t, h.plan.got.NoCache)
}

func TestPlan_JSONOutput(t *testing.T) {
	h := newHarness(t)
	path := writeStories(t, "stories.json", storiesJSON)

	out, _, err := h.run(t, "plan", path, "--json")
	require.NoError(t, err)

	var resp app.ScheduleResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-42", resp.RunID)
	assert.Len(t, resp.Schedule.StoryBlocks, 2)
}

func TestPlan_YAMLFromStdin(t *testing.T) {
	h := newHarness(t)
	yamlDoc := `
startTime: "2025-06-16T10:00:00Z"
stories:
  - title: Reading
    tasks:
      - title: Chapter 3
        duration: 30
`
	_, _, err := h.runWithInput(t, yamlDoc, "plan", "-")
	require.NoError(t, err)
	require.Len(t, h.plan.got.Stories, 1)
	assert.Equal(t, "Chapter 3", h.plan.got.Stories[0].Tasks[0].Title)
}

func TestPlan_InvalidFileListsProblems(t *testing.T) {
	h := newHarness(t)
	path := writeStories(t, "bad.yaml", `
stories:
  - title: ""
    tasks:
      - title: Too long
        duration: 200
`)

	_, errOut, err := h.run(t, "plan", path)
	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Contains(t, errOut, "2 problem(s)")
	assert.Contains(t, errOut, "stories[0].title is required")
	assert.Contains(t, errOut, "exceeds the 180 minute maximum")
	assert.Zero(t, h.plan.calls)
}

func TestPlan_PipelineFailureIsRendered(t *testing.T) {
	h := newHarness(t)
	h.plan.err = app.NewPipelineError(app.ErrMissingTasks, map[string]any{"missing": []string{"Inbox"}}, "1 task was not scheduled")
	h.plan.events = []app.AttemptEvent{
		{Attempt: 1, MaxAttempts: 1, Phase: app.PhaseStarted},
		{Attempt: 1, MaxAttempts: 1, Phase: app.PhaseFailed, Code: app.ErrMissingTasks},
	}
	path := writeStories(t, "stories.json", storiesJSON)

	_, errOut, err := h.run(t, "plan", path)
	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Contains(t, errOut, "attempt 1/1: MISSING_TASKS, giving up")
	assert.Contains(t, errOut, "1 task was not scheduled")
	assert.Contains(t, errOut, "Inbox")
	assert.NotContains(t, errOut, "generating schedule", "started events are only shown on a terminal")
}

func TestPlan_JSONFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	h.plan.err = app.NewPipelineError(app.ErrUpstreamOverloaded, nil, "busy")
	path := writeStories(t, "stories.json", storiesJSON)

	_, _, err := h.run(t, "plan", path, "--json")
	require.Error(t, err)
	assert.False(t, IsReported(err))
	assert.Equal(t, app.ErrUpstreamOverloaded, app.AsPipelineError(err).Code)
}

func TestParseStart(t *testing.T) {
	now := time.Date(2025, 6, 16, 8, 30, 0, 0, time.UTC)

	got, err := parseStart("07:05", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 16, 7, 5, 0, 0, time.UTC), got)

	got, err = parseStart("2025-07-01T10:00:00+02:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC), got.UTC())

	_, err = parseStart("noon", now)
	assert.Error(t, err)
}

func TestValidate_ReportsSplits(t *testing.T) {
	h := newHarness(t)
	path := writeStories(t, "stories.json", storiesJSON)

	out, _, err := h.run(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 stories, 3 tasks")
	assert.Contains(t, out, "Prototype (1h 40m)")
	assert.NotContains(t, out, "Write design")
	assert.Zero(t, h.plan.calls)
}

func TestValidate_DurationCeiling(t *testing.T) {
	h := newHarness(t)
	var stories []string
	for i := range 9 {
		stories = append(stories, fmt.Sprintf(`{"title": "Story %d", "tasks": [{"title": "Task %d", "duration": 170}]}`, i, i))
	}
	path := writeStories(t, "big.json", `{"stories": [`+strings.Join(stories, ",")+`]}`)

	_, errOut, err := h.run(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, app.ErrDurationExceeded, app.AsPipelineError(err).Code)
	assert.Contains(t, errOut, "DURATION_EXCEEDED")
}

func TestRunsList(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "MISSING_TASKS")
	assert.Contains(t, out, "1h ago")

	out, _, err = h.run(t, "runs", "list", "--limit", "1", "--json")
	require.NoError(t, err)
	var runs []app.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)

	_, _, err = h.run(t, "runs", "list", "--limit", "0")
	assert.Error(t, err)
}

func TestRunsShow(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "runs", "show", "run-2", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "ATTEMPT 1 RESPONSE")

	_, _, err = h.run(t, "runs", "show", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExport(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "export", "--run", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.export.runID)
	assert.Contains(t, out, "exported 4 events for run run-1")

	_, _, err = h.run(t, "export")
	assert.ErrorContains(t, err, "--run is required")
}

func TestExport_MissingToken(t *testing.T) {
	h := newHarness(t)
	a, _, _ := h.app("")
	load := a.Load
	a.Load = func(p string) (*Runtime, error) {
		rt, err := load(p)
		if err != nil {
			return nil, err
		}
		rt.Export = func(context.Context) (app.CalendarExportUseCase, error) {
			return nil, calendar.ErrNoToken
		}
		return rt, nil
	}

	err := Execute(context.Background(), a, []string{"export", "--run", "run-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, calendar.ErrNoToken)
	assert.Contains(t, err.Error(), "--authorize")
}

func TestExport_AuthorizeNeedsCredentials(t *testing.T) {
	h := newHarness(t)
	h.cfg.Calendar.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")

	_, _, err := h.run(t, "export", "--authorize")
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	h := newHarness(t)
	h.cfg.Rules.MaxWorkWithoutBreak = 75

	out, _, err := h.run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "75 min (+5 tolerance)")

	out, _, err = h.run(t, "rules", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"maxWorkWithoutBreak": 75`)
}

func TestLoadErrorIsReturned(t *testing.T) {
	h := newHarness(t)
	h.loadErr = errors.New("config: bad yaml")

	_, _, err := h.run(t, "rules")
	assert.EqualError(t, err, "config: bad yaml")
	assert.False(t, h.closed)
}

func TestServe_StopsWithContext(t *testing.T) {
	h := newHarness(t)
	a, _, _ := h.app("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Execute(ctx, a, []string{"serve", "--addr", "127.0.0.1:0"})
	assert.NoError(t, err)
	assert.True(t, h.closed)
}

func TestHelpListsCommands(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.run(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"plan", "validate", "serve", "runs", "export", "rules"} {
		assert.Contains(t, out, name)
	}
	assert.Zero(t, h.loads, "help does not build the runtime")
}
