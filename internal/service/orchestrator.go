package service

import (
	"context"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/intelligence"
	"github.com/alexanderramin/timeboxer/internal/logger"
	"github.com/google/uuid"
)

// RetryPolicy bounds the attempt loop. MaxAttempts counts every generator
// call, the first one included.
type RetryPolicy struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	ParseBackoff      time.Duration `yaml:"parse_backoff"`
	ConstraintBackoff time.Duration `yaml:"constraint_backoff"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       10,
		ParseBackoff:      2 * time.Second,
		ConstraintBackoff: 500 * time.Millisecond,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Outcome is everything one orchestrated run produced. It is returned even
// when the run fails so the attempts can be archived.
type Outcome struct {
	Result   *PipelineResult
	Stories  []domain.Story
	Mapping  []domain.StoryMapping
	Attempts []domain.RunAttempt
}

type Orchestrator struct {
	gen      intelligence.ScheduleGenerator
	pipeline *Pipeline
	policy   RetryPolicy
	sleep    SleepFunc
	now      func() time.Time
	log      *logger.Logger
}

type OrchestratorOption func(*Orchestrator)

func WithSleep(fn SleepFunc) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = fn }
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func WithOrchestratorLogger(log *logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

func NewOrchestrator(gen intelligence.ScheduleGenerator, pipeline *Pipeline, policy RetryPolicy, opts ...OrchestratorOption) *Orchestrator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	o := &Orchestrator{
		gen:      gen,
		pipeline: pipeline,
		policy:   policy,
		sleep:    sleepContext,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives generator attempts until one validates or the budget is spent.
// Format, structural, reconciliation and upstream failures resend the same
// payload after ParseBackoff. Constraint failures rework the offending story
// and retry after ConstraintBackoff. Anything else stops the loop. The last
// failure is returned unmodified.
func (o *Orchestrator) Run(ctx context.Context, runID string, req app.ScheduleRequest, progress app.ProgressFunc) (*Outcome, error) {
	rules := o.pipeline.Rules()
	emit := func(ev app.AttemptEvent) {
		if progress == nil {
			return
		}
		ev.RunID = runID
		ev.MaxAttempts = o.policy.MaxAttempts
		progress(ev)
	}

	stories := PreemptiveSplit(rules, req.Stories)
	out := &Outcome{Stories: stories, Mapping: BuildMapping(stories, req.StoryMapping)}
	log := o.log.With("run_id", runID)

	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		emit(app.AttemptEvent{Attempt: attempt, Phase: app.PhaseStarted})

		started := o.now()
		record := domain.RunAttempt{ID: uuid.New().String(), RunID: runID, Number: attempt, CreatedAt: started}

		res, err := o.attempt(ctx, req, out, &record)
		if record.LatencyMs == 0 {
			record.LatencyMs = o.now().Sub(started).Milliseconds()
		}

		if err == nil {
			out.Attempts = append(out.Attempts, record)
			out.Result = res
			emit(app.AttemptEvent{Attempt: attempt, Phase: app.PhaseSucceeded})
			log.Info("schedule validated", "attempt", attempt)
			return out, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			record.ErrorCode = string(app.ErrInternal)
			record.Message = ctxErr.Error()
			out.Attempts = append(out.Attempts, record)
			return out, ctxErr
		}

		pe := app.AsPipelineError(err)
		record.ErrorCode = string(pe.Code)
		record.Message = pe.Message
		out.Attempts = append(out.Attempts, record)

		retrying := pe.Code.Retryable() && attempt < o.policy.MaxAttempts
		ev := app.AttemptEvent{Attempt: attempt, Phase: app.PhaseFailed, Code: pe.Code, Message: pe.Message, Retrying: retrying}
		if !retrying {
			emit(ev)
			log.Warn("schedule attempt failed", "attempt", attempt, "code", pe.Code, "retrying", false)
			return out, err
		}

		ev.Backoff = o.policy.ParseBackoff
		if pe.Code.NeedsMutation() {
			ev.Backoff = o.policy.ConstraintBackoff
			out.Stories, ev.Mutated = MutateForConstraint(rules, out.Stories, pe.Details)
			out.Mapping = BuildMapping(out.Stories, req.StoryMapping)
		}
		emit(ev)
		log.Warn("schedule attempt failed", "attempt", attempt, "code", pe.Code,
			"retrying", true, "mutated", ev.Mutated, "backoff_ms", ev.Backoff.Milliseconds())

		if err := o.sleep(ctx, ev.Backoff); err != nil {
			return out, err
		}
	}
	// Unreachable: the last iteration always returns.
	return out, app.NewPipelineError(app.ErrInternal, nil, "retry loop exited without a result")
}

func (o *Orchestrator) attempt(ctx context.Context, req app.ScheduleRequest, out *Outcome, record *domain.RunAttempt) (*PipelineResult, error) {
	prop, err := o.gen.Propose(ctx, intelligence.ScheduleInput{
		Stories:   out.Stories,
		StartTime: req.StartTime,
		Mapping:   out.Mapping,
		Rules:     o.pipeline.Rules(),
	})
	if err != nil {
		return nil, err
	}
	record.RawResponse = prop.Text
	record.LatencyMs = prop.LatencyMs

	return o.pipeline.Run(ctx, PipelineInput{
		Raw:       prop.Text,
		Stories:   out.Stories,
		Mapping:   out.Mapping,
		StartTime: req.StartTime,
	})
}
