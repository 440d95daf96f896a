package repository

import (
	"context"
	"errors"

	"github.com/alexanderramin/timeboxer/internal/domain"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// ScheduleRunRepo archives planning runs and their generator attempts.
type ScheduleRunRepo interface {
	Create(ctx context.Context, run *domain.ScheduleRun) error
	Finish(ctx context.Context, run *domain.ScheduleRun) error
	GetByID(ctx context.Context, id string) (*domain.ScheduleRun, error)
	List(ctx context.Context, limit int) ([]*domain.ScheduleRun, error)

	AddAttempt(ctx context.Context, a *domain.RunAttempt) error
	ListAttempts(ctx context.Context, runID string) ([]domain.RunAttempt, error)
}
