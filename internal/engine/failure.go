package engine

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"
)

// FailureCause says why a capability call failed.
type FailureCause string

const (
	CauseNone              FailureCause = ""
	CauseRateLimited       FailureCause = "rate_limited"
	CauseQuotaExhausted    FailureCause = "quota_exhausted"
	CauseUpstream          FailureCause = "upstream_error"
	CauseTimeout           FailureCause = "timeout"
	CauseCanceled          FailureCause = "canceled"
	CauseMalformedResponse FailureCause = "malformed_response"
)

// Sentinels matched by errors.Is against any error carrying the corresponding cause.
var (
	ErrRateLimited       = errors.New("capability rate limited")
	ErrQuotaExhausted    = errors.New("capability quota exhausted")
	ErrUpstream          = errors.New("capability upstream error")
	ErrTimeout           = errors.New("capability timed out")
	ErrCanceled          = errors.New("capability call canceled")
	ErrMalformedResponse = errors.New("capability returned malformed response")
)

// Sentinel maps a cause to its sentinel error (nil for CauseNone).
func (c FailureCause) Sentinel() error {
	switch c {
	case CauseRateLimited:
		return ErrRateLimited
	case CauseQuotaExhausted:
		return ErrQuotaExhausted
	case CauseUpstream:
		return ErrUpstream
	case CauseTimeout:
		return ErrTimeout
	case CauseCanceled:
		return ErrCanceled
	case CauseMalformedResponse:
		return ErrMalformedResponse
	}
	return nil
}

// CapabilityError is returned by Capability implementations.
type CapabilityError struct {
	Cause FailureCause
	Err   error
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return string(e.Cause)
	}
	return string(e.Cause) + ": " + e.Err.Error()
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRateLimited) and friends match on the cause.
func (e *CapabilityError) Is(target error) bool {
	s := e.Cause.Sentinel()
	return s != nil && s == target
}

// Malformed wraps a response decoding failure.
func Malformed(err error) error {
	return &CapabilityError{Cause: CauseMalformedResponse, Err: err}
}

// CauseOf extracts the failure cause from err, classifying raw errors when needed.
func CauseOf(err error) FailureCause {
	if err == nil {
		return CauseNone
	}
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Cause
	}
	return Classify(err)
}

// Classify maps a raw backend error onto a FailureCause.
// Context errors win over everything else; then structured API errors; then message sniffing
// for backends that only surface the HTTP status in the error text.
func Classify(err error) FailureCause {
	if err == nil {
		return CauseNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}
	if errors.Is(err, context.Canceled) {
		return CauseCanceled
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Status+" "+apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus(apiErrPtr.Code, apiErrPtr.Status+" "+apiErrPtr.Message)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout
	}
	return classifyStatus(0, err.Error())
}

// classifyStatus separates exhausted quota (billing, daily caps) from ordinary
// rate limits. Gemini words every 429 as "Resource has been exhausted (e.g. check
// quota)", so the word "quota" alone means a per-minute limit.
func classifyStatus(code int, msg string) FailureCause {
	m := strings.ToLower(msg)
	switch {
	case code == 402,
		strings.Contains(m, "insufficient_quota"),
		strings.Contains(m, "billing"),
		strings.Contains(m, "per day"),
		strings.Contains(m, "per_day"),
		strings.Contains(m, "perday"):
		return CauseQuotaExhausted
	case code == 429,
		strings.Contains(m, "429"),
		strings.Contains(m, "rate limit"),
		strings.Contains(m, "rate_limit"),
		strings.Contains(m, "too many requests"),
		strings.Contains(m, "resource_exhausted"),
		strings.Contains(m, "resource has been exhausted"),
		strings.Contains(m, "quota"):
		return CauseRateLimited
	case strings.Contains(m, "deadline exceeded"), strings.Contains(m, "timeout"):
		return CauseTimeout
	}
	return CauseUpstream
}
