package feed

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// Error kinds. Match with errors.Is; every *Error reports exactly one kind.
var (
	ErrConfiguration    = errors.New("provider not configured")
	ErrAuthentication   = errors.New("provider authentication failed")
	ErrRateLimited      = errors.New("provider rate limited")
	ErrNotFound         = errors.New("property not found")
	ErrInvalidResponse  = errors.New("invalid provider response")
	ErrUnavailable      = errors.New("provider unavailable")
	ErrTooManyRedirects = errors.New("provider redirected too many times")
	ErrProvider         = errors.New("provider error")
)

// Error is a classified provider failure
type Error struct {
	Kind     error
	Provider string
	Op       string
	Status   int // HTTP status when one was received
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return e.Kind == target }

func NewError(kind error, provider, op string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Op: op, Err: cause}
}

// ClassifyStatus maps an HTTP status onto an error kind, nil for 2xx
func ClassifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrAuthentication
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrProvider
	}
}

// StatusError builds the classified error for a non-2xx response
func StatusError(provider, op string, status int, body string) *Error {
	e := &Error{Kind: ClassifyStatus(status), Provider: provider, Op: op, Status: status}
	if body != "" {
		e.Err = errors.New(truncate(body, 200))
	}
	return e
}

// Retryable reports whether a caller may retry err with backoff.
// Auth, configuration and malformed-response failures never are.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// KindOf returns the error kind of err, ErrProvider for unclassified errors
func KindOf(err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrProvider
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
