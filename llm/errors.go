package llm

import (
	"fmt"
)

type FailureKind string

const (
	// RequestFailure: the endpoint answered with a non-200 status.
	RequestFailure FailureKind = "request_failure"
	// ParseFailure: 200 but the body did not have the expected shape.
	ParseFailure FailureKind = "parse_failure"
	// TransportFailure: no response at all (DNS, connect, timeout).
	TransportFailure FailureKind = "transport_failure"
)

// ExplanationError carries the raw response so callers can show it for
// diagnostics.
type ExplanationError struct {
	Kind       FailureKind
	StatusCode int
	Raw        string
	Err        error
}

func (e *ExplanationError) Error() string {
	switch e.Kind {
	case RequestFailure:
		return fmt.Sprintf("explanation request failed with status %d", e.StatusCode)
	case ParseFailure:
		if e.Err != nil {
			return fmt.Sprintf("could not parse explanation response: %v", e.Err)
		}
		return "could not parse explanation response"
	default:
		return fmt.Sprintf("explanation transport failed: %v", e.Err)
	}
}

func (e *ExplanationError) Unwrap() error {
	return e.Err
}
