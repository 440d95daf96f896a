package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/intelligence"
	"github.com/alexanderramin/timeboxer/internal/testutil"
)

// layoutJSON renders a well-behaved schedule for the given stories.
func layoutJSON(stories []domain.Story, start time.Time) string {
	buf, err := json.Marshal(testutil.LayoutSchedule(stories, start))
	if err != nil {
		panic(err)
	}
	return string(buf)
}

type replyFunc func(in intelligence.ScheduleInput) (string, error)

// scriptedGenerator replays a fixed list of replies. A reply is either raw
// text or an error; the last one repeats once the script runs out. A nil
// reply func lays out whatever stories it was sent.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []replyFunc
	inputs  []intelligence.ScheduleInput
}

func (g *scriptedGenerator) Propose(ctx context.Context, in intelligence.ScheduleInput) (*intelligence.Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.inputs = append(g.inputs, in)

	reply := func(in intelligence.ScheduleInput) (string, error) {
		return layoutJSON(in.Stories, in.StartTime), nil
	}
	if len(g.replies) > 0 {
		i := min(len(g.inputs)-1, len(g.replies)-1)
		if g.replies[i] != nil {
			reply = g.replies[i]
		}
	}
	text, err := reply(in)
	if err != nil {
		return nil, err
	}
	return &intelligence.Proposal{Text: text, Model: "mock", LatencyMs: 12}, nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inputs)
}

func text(s string) replyFunc {
	return func(intelligence.ScheduleInput) (string, error) { return s, nil }
}

func fail(err error) replyFunc {
	return func(intelligence.ScheduleInput) (string, error) { return "", err }
}

// layout lays out the received stories, then lets edit tamper with the
// result before it is encoded.
func layout(edit func(*domain.Schedule)) replyFunc {
	return func(in intelligence.ScheduleInput) (string, error) {
		s := testutil.LayoutSchedule(in.Stories, in.StartTime)
		if edit != nil {
			edit(&s)
		}
		buf, err := json.Marshal(s)
		return string(buf), err
	}
}

type recordedSleep struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	if r.err != nil {
		return r.err
	}
	return ctx.Err()
}

type eventLog struct {
	mu     sync.Mutex
	events []app.AttemptEvent
}

func (l *eventLog) record(ev app.AttemptEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) phases() []app.AttemptPhase {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]app.AttemptPhase, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Phase
	}
	return out
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]app.ScheduleResponse
	events  []app.AttemptEvent
}

func newMemCache() *memCache { return &memCache{entries: map[string]app.ScheduleResponse{}} }

func (c *memCache) Get(_ context.Context, key string) (*app.ScheduleResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *memCache) Set(_ context.Context, key string, resp *app.ScheduleResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *resp
	return nil
}

func (c *memCache) Publish(_ context.Context, ev app.AttemptEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

type captureObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *captureObserver) ObserveUseCase(_ context.Context, ev UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

type recordingExporter struct {
	runID    string
	schedule domain.Schedule
}

func (e *recordingExporter) Export(_ context.Context, runID string, s domain.Schedule) (int, error) {
	e.runID = runID
	e.schedule = s
	return len(s.Boxes()), nil
}

func mustJSON(t interface{ Fatalf(string, ...any) }, v any) string {
	buf, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(buf)
}
