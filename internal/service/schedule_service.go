package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/cache"
	"github.com/alexanderramin/timeboxer/internal/db"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/logger"
	"github.com/alexanderramin/timeboxer/internal/repository"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

type scheduleService struct {
	orch     *Orchestrator
	rules    scheduler.Rules
	runs     repository.ScheduleRunRepo
	uow      db.UnitOfWork
	cache    cache.ScheduleCache
	progress cache.ProgressPublisher
	provider string

	group    singleflight.Group
	observer UseCaseObserver
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type ScheduleServiceOption func(*scheduleService)

func WithCache(c cache.ScheduleCache) ScheduleServiceOption {
	return func(s *scheduleService) { s.cache = c }
}

func WithProgressPublisher(p cache.ProgressPublisher) ScheduleServiceOption {
	return func(s *scheduleService) { s.progress = p }
}

func WithProvider(name string) ScheduleServiceOption {
	return func(s *scheduleService) { s.provider = name }
}

func WithServiceLogger(log *logger.Logger) ScheduleServiceOption {
	return func(s *scheduleService) { s.log = log }
}

func WithObserver(obs UseCaseObserver) ScheduleServiceOption {
	return func(s *scheduleService) { s.observer = useCaseObserverOrNoop([]UseCaseObserver{obs}) }
}

// NewScheduleService wires the plan use case. runs and uow may share one
// database; runs serves the initial insert and uow wraps the final write.
func NewScheduleService(orch *Orchestrator, runs repository.ScheduleRunRepo, uow db.UnitOfWork, opts ...ScheduleServiceOption) app.PlanScheduleUseCase {
	s := &scheduleService{
		orch:     orch,
		rules:    orch.pipeline.Rules(),
		runs:     runs,
		uow:      uow,
		cache:    cache.Noop{},
		progress: cache.Noop{},
		observer: NoopUseCaseObserver{},
		log:      logger.Nop(),
		tracer:   otel.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type planResult struct {
	resp *app.ScheduleResponse
	err  error
}

func (s *scheduleService) Plan(ctx context.Context, req app.ScheduleRequest, progress app.ProgressFunc) (resp *app.ScheduleResponse, err error) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, "schedule.plan", trace.WithAttributes(
		attribute.Int("schedule.stories", len(req.Stories)),
	))
	defer func() {
		fields := map[string]any{"stories": len(req.Stories)}
		if resp != nil {
			fields["run_id"] = resp.RunID
			fields["attempts"] = resp.Attempts
			fields["cached"] = resp.Cached
		}
		if err != nil {
			pe := app.AsPipelineError(err)
			fields["code"] = string(pe.Code)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "schedule.plan",
			Duration:  s.now().Sub(started),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
			StartedAt: started,
		})
	}()

	if err := ValidateRequest(s.rules, req); err != nil {
		return nil, err
	}
	req.Stories = withEstimates(req.Stories)
	if err := CheckDuration(s.rules, req.Stories); err != nil {
		return nil, err
	}

	key := cache.Key(s.rules, req)
	if !req.NoCache {
		cached, ok, cerr := s.cache.Get(ctx, key)
		if cerr != nil {
			s.log.Warn("schedule cache read failed", "error", cerr)
		}
		if ok {
			cached.Cached = true
			span.SetAttributes(attribute.Bool("schedule.cached", true))
			return cached, nil
		}
	}

	// Identical concurrent requests share one generator run. Only the
	// leader's progress callback sees attempt events. The shared run is
	// detached from the leader's cancellation; each caller stops waiting on
	// its own context.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		r, perr := s.plan(shared, key, req, progress)
		return planResult{resp: r, err: perr}, nil
	})
	select {
	case res := <-ch:
		pr := res.Val.(planResult)
		return pr.resp, pr.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *scheduleService) plan(ctx context.Context, key string, req app.ScheduleRequest, progress app.ProgressFunc) (*app.ScheduleResponse, error) {
	run, err := s.startRun(ctx, key, req)
	if err != nil {
		return nil, err
	}

	emit := func(ev app.AttemptEvent) {
		if progress != nil {
			progress(ev)
		}
		if perr := s.progress.Publish(ctx, ev); perr != nil {
			s.log.Debug("progress publish failed", "error", perr)
		}
	}

	out, runErr := s.orch.Run(ctx, run.ID, req, emit)

	var resp *app.ScheduleResponse
	if runErr == nil {
		resp = &app.ScheduleResponse{
			RunID:       run.ID,
			Schedule:    out.Result.Schedule,
			Stories:     out.Result.Stories,
			Suggestions: out.Result.Suggestions,
			Attempts:    len(out.Attempts),
		}
	}

	// The archive write must not be lost to a cancelled request.
	if ferr := s.finishRun(context.WithoutCancel(ctx), run, out, resp, runErr); ferr != nil {
		s.log.Error("archiving schedule run failed", "run_id", run.ID, "error", ferr)
	}

	if runErr != nil {
		return nil, runErr
	}
	if cerr := s.cache.Set(ctx, key, resp); cerr != nil {
		s.log.Warn("schedule cache write failed", "error", cerr)
	}
	return resp, nil
}

func (s *scheduleService) startRun(ctx context.Context, key string, req app.ScheduleRequest) (*domain.ScheduleRun, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, app.NewPipelineError(app.ErrInternal, nil, "encoding request: %v", err)
	}
	run := &domain.ScheduleRun{
		ID:           uuid.New().String(),
		RequestHash:  key,
		Status:       domain.RunPending,
		StoryCount:   len(req.Stories),
		TotalMinutes: domain.TotalEstimatedDuration(req.Stories),
		Provider:     s.provider,
		RequestJSON:  reqJSON,
		CreatedAt:    s.now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, app.NewPipelineError(app.ErrInternal, nil, "archiving run: %v", err)
	}
	return run, nil
}

func (s *scheduleService) finishRun(ctx context.Context, run *domain.ScheduleRun, out *Outcome, resp *app.ScheduleResponse, runErr error) error {
	finished := s.now()
	run.FinishedAt = &finished
	run.AttemptCount = len(out.Attempts)
	if runErr != nil {
		pe := app.AsPipelineError(runErr)
		run.Status = domain.RunFailed
		run.ErrorCode = string(pe.Code)
		run.ErrorMessage = pe.Message
	} else {
		run.Status = domain.RunSucceeded
		sched, err := json.Marshal(resp.Schedule)
		if err != nil {
			return fmt.Errorf("encoding schedule: %w", err)
		}
		run.ScheduleJSON = sched
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txRuns := repository.NewSQLiteScheduleRunRepo(tx)
		for i := range out.Attempts {
			if err := txRuns.AddAttempt(ctx, &out.Attempts[i]); err != nil {
				return err
			}
		}
		return txRuns.Finish(ctx, run)
	})
}

// ValidateRequest rejects requests the generator should never see.
func ValidateRequest(rules scheduler.Rules, req app.ScheduleRequest) error {
	var problems []string
	if len(req.Stories) == 0 {
		problems = append(problems, "at least one story is required")
	}
	if req.StartTime.IsZero() {
		problems = append(problems, "startTime is required")
	}
	for i, st := range req.Stories {
		if st.Title == "" {
			problems = append(problems, fmt.Sprintf("stories[%d].title is required", i))
		}
		if len(st.Tasks) == 0 {
			problems = append(problems, fmt.Sprintf("stories[%d].tasks: at least one task is required", i))
		}
		for j, t := range st.Tasks {
			if t.Title == "" {
				problems = append(problems, fmt.Sprintf("stories[%d].tasks[%d].title is required", i, j))
			}
			if err := t.Validate(); err != nil {
				problems = append(problems, fmt.Sprintf("stories[%d].tasks[%d]: %v", i, j, err))
			} else if t.Duration > rules.MaxTaskDuration {
				problems = append(problems, fmt.Sprintf("stories[%d].tasks[%d]: duration %d exceeds the %d minute maximum",
					i, j, t.Duration, rules.MaxTaskDuration))
			}
		}
	}
	if len(problems) > 0 {
		return app.NewPipelineError(app.ErrInvalidRequest, map[string]any{"errors": problems},
			"request is invalid: %s", problems[0])
	}
	return nil
}

// CheckDuration rejects story lists whose estimates add up to more than
// the schedule ceiling.
func CheckDuration(rules scheduler.Rules, stories []domain.Story) error {
	total := domain.TotalEstimatedDuration(stories)
	if total > rules.MaxScheduleMinutes {
		return app.NewPipelineError(app.ErrDurationExceeded, map[string]any{
			"totalDuration": total,
			"maxDuration":   rules.MaxScheduleMinutes,
		}, "requested %d minutes exceeds the %d minute ceiling", total, rules.MaxScheduleMinutes)
	}
	return nil
}

// withEstimates copies the stories, deriving a zero estimate from the
// story's tasks.
func withEstimates(stories []domain.Story) []domain.Story {
	out := domain.CloneStories(stories)
	for i := range out {
		if out[i].EstimatedDuration <= 0 {
			out[i].EstimatedDuration = out[i].TaskDuration()
		}
	}
	return out
}
