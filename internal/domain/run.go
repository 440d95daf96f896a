package domain

import "time"

// ScheduleRun is the archived record of one planning request.
type ScheduleRun struct {
	ID           string
	RequestHash  string
	Status       RunStatus
	ErrorCode    string
	ErrorMessage string
	StoryCount   int
	TotalMinutes int
	AttemptCount int
	Provider     string
	RequestJSON  []byte
	ScheduleJSON []byte
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// RunAttempt records a single generator round-trip inside a run.
type RunAttempt struct {
	ID          string    `json:"id"`
	RunID       string    `json:"runId"`
	Number      int       `json:"number"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Message     string    `json:"message,omitempty"`
	RawResponse string    `json:"rawResponse,omitempty"`
	LatencyMs   int64     `json:"latencyMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Succeeded reports whether the attempt produced a valid schedule.
func (a RunAttempt) Succeeded() bool { return a.ErrorCode == "" }
