package exchange

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInsufficientBalance
	KindAuthentication
	KindRateLimited
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindAuthentication:
		return "authentication"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server_error"
	default:
		return "unknown"
	}
}

// APIError carries the failure kind alongside the underlying cause so callers
// can decide between abort-and-retry and hard rejection.
type APIError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Kind)
}

func (e *APIError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op, message string) *APIError {
	return &APIError{Kind: kind, Op: op, Message: message}
}

func kindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func IsInsufficientBalance(err error) bool { return kindOf(err) == KindInsufficientBalance }
func IsAuthentication(err error) bool      { return kindOf(err) == KindAuthentication }
func IsRateLimited(err error) bool         { return kindOf(err) == KindRateLimited }
func IsServerError(err error) bool         { return kindOf(err) == KindServer }

// Transient reports whether the failure is worth retrying next cycle.
func Transient(err error) bool {
	switch kindOf(err) {
	case KindRateLimited, KindServer:
		return true
	default:
		return false
	}
}
