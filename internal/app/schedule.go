package app

import (
	"time"

	"github.com/alexanderramin/timeboxer/internal/domain"
)

type ScheduleRequest struct {
	Stories      []domain.Story        `json:"stories"`
	StartTime    time.Time             `json:"startTime"`
	StoryMapping []domain.StoryMapping `json:"storyMapping,omitempty"`

	// NoCache skips the validated-schedule cache for this request.
	NoCache bool `json:"-"`
}

func NewScheduleRequest(stories []domain.Story, start time.Time) ScheduleRequest {
	return ScheduleRequest{
		Stories:   stories,
		StartTime: start,
	}
}

type ScheduleResponse struct {
	RunID       string              `json:"runId,omitempty"`
	Schedule    domain.Schedule     `json:"schedule"`
	Stories     []domain.Story      `json:"stories,omitempty"`
	Suggestions []domain.Suggestion `json:"suggestions,omitempty"`
	Attempts    int                 `json:"attempts"`
	Cached      bool                `json:"cached,omitempty"`
}

// AttemptPhase marks where in the retry loop an AttemptEvent was emitted.
type AttemptPhase string

const (
	PhaseStarted   AttemptPhase = "started"
	PhaseFailed    AttemptPhase = "failed"
	PhaseSucceeded AttemptPhase = "succeeded"
)

// AttemptEvent is the typed progress signal emitted on every attempt
// boundary.
type AttemptEvent struct {
	RunID       string        `json:"runId,omitempty"`
	Attempt     int           `json:"attempt"`
	MaxAttempts int           `json:"maxAttempts"`
	Phase       AttemptPhase  `json:"phase"`
	Code        ErrorCode     `json:"code,omitempty"`
	Message     string        `json:"message,omitempty"`
	Retrying    bool          `json:"retrying,omitempty"`
	Mutated     bool          `json:"mutated,omitempty"`
	Backoff     time.Duration `json:"backoff,omitempty"`
}

// ProgressFunc receives attempt events. It must not block.
type ProgressFunc func(AttemptEvent)

type RunSummary struct {
	ID           string           `json:"id"`
	Status       domain.RunStatus `json:"status"`
	ErrorCode    string           `json:"errorCode,omitempty"`
	StoryCount   int              `json:"storyCount"`
	TotalMinutes int              `json:"totalMinutes"`
	AttemptCount int              `json:"attemptCount"`
	CreatedAt    time.Time        `json:"createdAt"`
}

type RunDetail struct {
	RunSummary
	ErrorMessage string              `json:"errorMessage,omitempty"`
	Request      *ScheduleRequest    `json:"request,omitempty"`
	Schedule     *domain.Schedule    `json:"schedule,omitempty"`
	Attempts     []domain.RunAttempt `json:"attempts"`
}
