package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable indicates the model server is unreachable.
	ErrUnavailable = errors.New("llm server unavailable")

	// ErrTimeout indicates the LLM request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrOverloaded indicates the provider is rate limiting or shedding load.
	ErrOverloaded = errors.New("llm provider overloaded")

	// ErrInvalidOutput indicates the LLM response could not be parsed
	// into the expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")
)

// StatusOverloaded is the non-standard status some providers use when
// they are over capacity.
const StatusOverloaded = 529

// StatusError is a non-2xx provider response that is not an overload.
type StatusError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// statusErr maps a provider status code to ErrOverloaded or a StatusError.
func statusErr(p Provider, code int, body string) error {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, StatusOverloaded:
		return fmt.Errorf("%w: %s returned status %d", ErrOverloaded, p, code)
	}
	return &StatusError{Provider: p, StatusCode: code, Body: body}
}
