package ai

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrorKind classifies why an analysis failed.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindMalformed ErrorKind = "malformed_response"
	KindUpstream  ErrorKind = "upstream"
)

// AnalysisError is returned by the analysis engine. Raw holds the model
// output when there was any.
type AnalysisError struct {
	Kind ErrorKind
	Err  error
	Raw  string
}

func (e *AnalysisError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("analysis timed out: %v", e.Err)
	case KindMalformed:
		return fmt.Sprintf("model returned a malformed response: %v", e.Err)
	default:
		return fmt.Sprintf("model call failed: %v", e.Err)
	}
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// IsKind reports whether err is an AnalysisError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Kind == kind
}
