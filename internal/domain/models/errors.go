package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrSourceTimeout       = errors.New("source timeout")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrNoSourcesConfigured = errors.New("no sources configured")
	ErrAggregation         = errors.New("aggregation error")
	ErrInvalidDateRange    = errors.New("invalid date range")
)

// SourceError is a provider failure for one (symbol, source) pair.
//
// Kind is one of the sentinel errors above so callers can use errors.Is.
type SourceError struct {
	Source     string
	Symbol     Symbol
	Kind       error
	StatusCode int
	Transient  bool
	Err        error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Source, e.Symbol, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether err is worth another attempt: provider-side
// rate limiting and transient unavailability.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimitExceeded) {
		return true
	}
	var se *SourceError
	if errors.As(err, &se) {
		return se.Transient && errors.Is(se.Kind, ErrSourceUnavailable)
	}
	return false
}

// ErrorKind returns a short label for err suitable for reports and storage.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSymbol):
		return "invalid_symbol"
	case errors.Is(err, ErrSourceTimeout):
		return "source_timeout"
	case errors.Is(err, ErrRateLimitExceeded):
		return "rate_limit_exceeded"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrInvalidDateRange):
		return "invalid_date_range"
	case errors.Is(err, ErrAggregation):
		return "aggregation_error"
	default:
		return "error"
	}
}
