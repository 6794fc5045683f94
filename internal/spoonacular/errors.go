package spoonacular

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Category classifies a failed upstream call. Categories are distinguished
// in logs and metrics only; callers see the collapsed result shape.
type Category string

const (
	CategoryTimeout    Category = "timeout"
	CategoryHTTP       Category = "http_error"
	CategoryConnection Category = "connection_error"
	CategoryUnexpected Category = "unexpected"
)

// ErrResponseTooLarge is reported, as an unexpected failure, when the
// upstream body exceeds the read limit.
var ErrResponseTooLarge = errors.New("response too large")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// decodeError marks a payload that could not be parsed.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decoding response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// ErrorResult is the caller-visible failure record of nutrition and meal-plan
// lookups.
type ErrorResult struct {
	Message  string   `json:"error"`
	Category Category `json:"-"`
}

func (e ErrorResult) Error() string { return e.Message }

func classify(err error) Category {
	var se *StatusError
	if errors.As(err, &se) {
		return CategoryHTTP
	}
	var de *decodeError
	if errors.As(err, &de) {
		return CategoryUnexpected
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CategoryTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return CategoryConnection
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return CategoryConnection
	}
	return CategoryUnexpected
}

func resultFor(cat Category, err error) ErrorResult {
	var msg string
	switch cat {
	case CategoryTimeout:
		msg = "Request timed out"
	case CategoryHTTP:
		var se *StatusError
		errors.As(err, &se)
		msg = fmt.Sprintf("HTTP error: %d", se.Code)
	case CategoryConnection:
		msg = fmt.Sprintf("Request error: %v", err)
	default:
		msg = fmt.Sprintf("Unexpected error: %v", err)
	}
	return ErrorResult{Message: msg, Category: cat}
}
