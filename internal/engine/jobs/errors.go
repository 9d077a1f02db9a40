package jobs

import (
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// ErrorKind is the top-level error taxonomy of the tailoring pipeline.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindParse      ErrorKind = "parse"
	KindGeneration ErrorKind = "generation"
)

// Kind sentinels for errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrParse      = errors.New("parse error")
	ErrGeneration = errors.New("generation error")
)

// Error is the typed error every pipeline component returns.
// Cause is set for parse and generation errors and says why the capability failed.
type Error struct {
	Kind  ErrorKind
	Cause engine.FailureCause
	Stage State
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Stage != "" {
		s += " in " + string(e.Stage)
	}
	if e.Field != "" {
		s += " (" + e.Field + ")"
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels and, through the cause, engine failure sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrParse:
		return e.Kind == KindParse
	case ErrGeneration:
		return e.Kind == KindGeneration
	}
	if s := e.Cause.Sentinel(); s != nil && s == target {
		return true
	}
	return false
}

func validationErr(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func parseErr(err error, msg string) *Error {
	return &Error{Kind: KindParse, Cause: engine.CauseOf(err), Msg: msg, Err: err}
}

func generationErr(err error, msg string) *Error {
	return &Error{Kind: KindGeneration, Cause: engine.CauseOf(err), Msg: msg, Err: err}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether a caller may retry the request unchanged: parse and
// generation failures caused by rate limits, upstream outages or timeouts.
// Validation errors, exhausted quota and caller cancellation are final.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	if !ok || e.Kind == KindValidation {
		return false
	}
	switch e.Cause {
	case engine.CauseRateLimited, engine.CauseUpstream, engine.CauseTimeout, engine.CauseMalformedResponse:
		return true
	}
	return false
}
