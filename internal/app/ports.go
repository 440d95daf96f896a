package app

import (
	"context"

	"github.com/alexanderramin/timeboxer/internal/domain"
)

type PlanScheduleUseCase interface {
	Plan(ctx context.Context, req ScheduleRequest, progress ProgressFunc) (*ScheduleResponse, error)
}

type RunQueryUseCase interface {
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	GetRun(ctx context.Context, id string) (*RunDetail, error)
}

type CalendarExportUseCase interface {
	ExportRun(ctx context.Context, runID string) (int, error)
}

// ExportSchedule is the calendar export boundary used by CalendarExportUseCase.
type ExportSchedule interface {
	Export(ctx context.Context, runID string, s domain.Schedule) (int, error)
}
