// Package cache stores validated schedules and fans out attempt progress.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
)

// ScheduleCache holds validated responses keyed by request hash.
type ScheduleCache interface {
	Get(ctx context.Context, key string) (*app.ScheduleResponse, bool, error)
	Set(ctx context.Context, key string, resp *app.ScheduleResponse) error
}

// ProgressPublisher forwards attempt events to out-of-process listeners.
type ProgressPublisher interface {
	Publish(ctx context.Context, ev app.AttemptEvent) error
}

type keyInput struct {
	Rules     scheduler.Rules       `json:"rules"`
	StartTime time.Time             `json:"startTime"`
	Stories   []domain.Story        `json:"stories"`
	Mapping   []domain.StoryMapping `json:"mapping"`
}

// Key hashes the parts of a request that determine its schedule. Task ids
// are left out because input files without ids get fresh ones every run.
func Key(rules scheduler.Rules, req app.ScheduleRequest) string {
	stories := domain.CloneStories(req.Stories)
	for i := range stories {
		for j := range stories[i].Tasks {
			stories[i].Tasks[j].ID = ""
		}
	}
	buf, _ := json.Marshal(keyInput{
		Rules:     rules,
		StartTime: req.StartTime.UTC(),
		Stories:   stories,
		Mapping:   req.StoryMapping,
	})
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// Noop is used when no cache backend is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*app.ScheduleResponse, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, *app.ScheduleResponse) error           { return nil }
func (Noop) Publish(context.Context, app.AttemptEvent) error                    { return nil }
