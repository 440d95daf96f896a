package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/repository"
)

type runService struct {
	runs repository.ScheduleRunRepo
}

func NewRunService(runs repository.ScheduleRunRepo) app.RunQueryUseCase {
	return &runService{runs: runs}
}

func (s *runService) ListRuns(ctx context.Context, limit int) ([]app.RunSummary, error) {
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]app.RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, summarizeRun(r))
	}
	return out, nil
}

func (s *runService) GetRun(ctx context.Context, id string) (*app.RunDetail, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	attempts, err := s.runs.ListAttempts(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []domain.RunAttempt{}
	}

	detail := &app.RunDetail{
		RunSummary:   summarizeRun(run),
		ErrorMessage: run.ErrorMessage,
		Attempts:     attempts,
	}
	if len(run.RequestJSON) > 0 {
		var req app.ScheduleRequest
		if err := json.Unmarshal(run.RequestJSON, &req); err != nil {
			return nil, fmt.Errorf("decoding archived request: %w", err)
		}
		detail.Request = &req
	}
	if len(run.ScheduleJSON) > 0 {
		var sched domain.Schedule
		if err := json.Unmarshal(run.ScheduleJSON, &sched); err != nil {
			return nil, fmt.Errorf("decoding archived schedule: %w", err)
		}
		detail.Schedule = &sched
	}
	return detail, nil
}

func summarizeRun(r *domain.ScheduleRun) app.RunSummary {
	return app.RunSummary{
		ID:           r.ID,
		Status:       r.Status,
		ErrorCode:    r.ErrorCode,
		StoryCount:   r.StoryCount,
		TotalMinutes: r.TotalMinutes,
		AttemptCount: r.AttemptCount,
		CreatedAt:    r.CreatedAt,
	}
}

type exportService struct {
	runs     app.RunQueryUseCase
	exporter app.ExportSchedule
}

// NewCalendarExportService exports archived schedules through exporter.
func NewCalendarExportService(runs app.RunQueryUseCase, exporter app.ExportSchedule) app.CalendarExportUseCase {
	return &exportService{runs: runs, exporter: exporter}
}

// ErrNoSchedule is returned when exporting a run that never produced a
// validated schedule.
var ErrNoSchedule = errors.New("run has no validated schedule")

func (s *exportService) ExportRun(ctx context.Context, runID string) (int, error) {
	detail, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return 0, err
	}
	if detail.Status != domain.RunSucceeded || detail.Schedule == nil {
		return 0, fmt.Errorf("run %s: %w", runID, ErrNoSchedule)
	}
	return s.exporter.Export(ctx, runID, *detail.Schedule)
}
