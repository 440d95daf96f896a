package app

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrInvalidRequest         ErrorCode = "INVALID_REQUEST"
	ErrDurationExceeded       ErrorCode = "DURATION_EXCEEDED"
	ErrInvalidResponseFormat  ErrorCode = "INVALID_RESPONSE_FORMAT"
	ErrInvalidStructure       ErrorCode = "INVALID_STRUCTURE"
	ErrUnknownStory           ErrorCode = "UNKNOWN_STORY"
	ErrBlockDuration          ErrorCode = "BLOCK_DURATION_ERROR"
	ErrExcessiveWorkTime      ErrorCode = "EXCESSIVE_WORK_TIME"
	ErrMissingTasks           ErrorCode = "MISSING_TASKS"
	ErrIncompletePartSequence ErrorCode = "INCOMPLETE_PART_SEQUENCE"
	ErrUpstreamOverloaded     ErrorCode = "UPSTREAM_OVERLOADED"
	ErrGenerationFailed       ErrorCode = "GENERATION_FAILED"
	ErrInternal               ErrorCode = "INTERNAL_ERROR"
)

// ErrorKind is the semantic category of an ErrorCode.
type ErrorKind string

const (
	KindInputRejection ErrorKind = "input_rejection"
	KindFormat         ErrorKind = "format"
	KindStructural     ErrorKind = "structural"
	KindReconciliation ErrorKind = "reconciliation"
	KindConstraint     ErrorKind = "constraint"
	KindCoverage       ErrorKind = "coverage"
	KindUpstream       ErrorKind = "upstream"
	KindInternal       ErrorKind = "internal"
)

// StatusUpstreamOverloaded mirrors the non-standard 529 used by overloaded
// model providers.
const StatusUpstreamOverloaded = 529

func (c ErrorCode) Kind() ErrorKind {
	switch c {
	case ErrInvalidRequest, ErrDurationExceeded:
		return KindInputRejection
	case ErrInvalidResponseFormat:
		return KindFormat
	case ErrInvalidStructure:
		return KindStructural
	case ErrUnknownStory:
		return KindReconciliation
	case ErrBlockDuration, ErrExcessiveWorkTime:
		return KindConstraint
	case ErrMissingTasks, ErrIncompletePartSequence:
		return KindCoverage
	case ErrUpstreamOverloaded, ErrGenerationFailed:
		return KindUpstream
	default:
		return KindInternal
	}
}

// Retryable reports whether a fresh generator attempt can fix the failure.
func (c ErrorCode) Retryable() bool {
	switch c.Kind() {
	case KindFormat, KindStructural, KindReconciliation, KindConstraint, KindUpstream:
		return true
	default:
		return false
	}
}

// NeedsMutation reports whether the next attempt should change the input
// stories rather than resend the same payload.
func (c ErrorCode) NeedsMutation() bool {
	return c.Kind() == KindConstraint
}

// HTTPStatus maps the code onto the status returned to API callers.
func (c ErrorCode) HTTPStatus() int {
	switch c.Kind() {
	case KindInternal:
		return http.StatusInternalServerError
	case KindUpstream:
		if c == ErrUpstreamOverloaded {
			return StatusUpstreamOverloaded
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// PipelineError is the tagged failure returned by every pipeline stage.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

func (e *PipelineError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewPipelineError builds a PipelineError with a formatted message.
func NewPipelineError(code ErrorCode, details map[string]any, format string, args ...any) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...), Details: details}
}

// AsPipelineError unwraps err into a PipelineError. Errors that are not
// pipeline errors come back as INTERNAL_ERROR.
func AsPipelineError(err error) *PipelineError {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return &PipelineError{Code: ErrInternal, Message: err.Error()}
}
