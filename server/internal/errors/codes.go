package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/poly000/tg-google-meet-bot/plugin/gcal"
	"github.com/poly000/tg-google-meet-bot/plugin/meettime"
)

// ErrorCode represents a specific error type for meeting operations.
type ErrorCode string

const (
	// ErrCodeTimeFormat indicates the time token is not a valid HH:MM.
	ErrCodeTimeFormat ErrorCode = "TIME_FORMAT"
	// ErrCodeDateFormat indicates the date token is not a valid DD/MM/YYYY date.
	ErrCodeDateFormat ErrorCode = "DATE_FORMAT"
	// ErrCodeRemoteTransport indicates the calendar provider could not be reached.
	ErrCodeRemoteTransport ErrorCode = "REMOTE_TRANSPORT"
	// ErrCodeRemoteRejected indicates the calendar provider answered with a failure status.
	ErrCodeRemoteRejected ErrorCode = "REMOTE_REJECTED"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeServiceUnavailable indicates the service is not available.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal is the fallback for errors of unknown origin.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// MeetError represents a structured error for meeting operations.
type MeetError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Context holds details for the logs, never shown to users.
	Context map[string]any
}

// Error implements the error interface.
func (e *MeetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *MeetError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *MeetError) WithContext(key string, value any) *MeetError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *MeetError {
	return &MeetError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *MeetError {
	return &MeetError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *MeetError {
	return &MeetError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *MeetError {
	return &MeetError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *MeetError {
	return &MeetError{Code: code, Message: msg, Cause: cause}
}

// LogAttrs returns the context of every MeetError in err's chain as log
// attributes, sorted by key. The outermost error wins on a shared key.
func LogAttrs(err error) []slog.Attr {
	fields := map[string]any{}
	for err != nil {
		var meetErr *MeetError
		if !stderrors.As(err, &meetErr) {
			break
		}
		for k, v := range meetErr.Context {
			if _, ok := fields[k]; !ok {
				fields[k] = v
			}
		}
		err = meetErr.Cause
	}
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return attrs
}

// Classify maps any error to a stable code.
// An explicit MeetError wins; domain errors from the resolver and the
// calendar client map to their own codes.
func Classify(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var meetErr *MeetError
	if stderrors.As(err, &meetErr) {
		return meetErr.Code
	}

	var parseErr *meettime.ParseError
	if stderrors.As(err, &parseErr) {
		switch parseErr.Kind {
		case meettime.KindTimeFormat:
			return ErrCodeTimeFormat
		case meettime.KindDateFormat:
			return ErrCodeDateFormat
		}
	}

	var rejected *gcal.RejectedError
	if stderrors.As(err, &rejected) {
		return ErrCodeRemoteRejected
	}

	// Context errors surface through the transport, check them first.
	switch {
	case stderrors.Is(err, context.Canceled):
		return ErrCodeContextCanceled
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	}

	var transport *gcal.TransportError
	if stderrors.As(err, &transport) {
		return ErrCodeRemoteTransport
	}
	return ErrCodeInternal
}

// HTTPStatus returns the HTTP status code reported for code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeTimeFormat, ErrCodeDateFormat, ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeRemoteRejected, ErrCodeRemoteTransport:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeContextCanceled:
		// nginx's "client closed request".
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns a short message safe to show to an end user.
func UserMessage(err error) string {
	switch Classify(err) {
	case ErrCodeTimeFormat:
		return "Invalid time, use HH:MM (24-hour)."
	case ErrCodeDateFormat:
		return "Invalid date, use DD/MM/YYYY."
	case ErrCodeRemoteTransport:
		return "Could not reach Google Calendar, try again later."
	case ErrCodeRemoteRejected:
		var rejected *gcal.RejectedError
		if stderrors.As(err, &rejected) {
			return fmt.Sprintf("Google Calendar rejected the request (status %d).", rejected.StatusCode)
		}
		return "Google Calendar rejected the request."
	case ErrCodeUnauthorized:
		return "You are not allowed to schedule meetings."
	case ErrCodeRateLimitExceeded:
		return "Too many requests, slow down."
	case ErrCodeInvalidArgument:
		var meetErr *MeetError
		if stderrors.As(err, &meetErr) && meetErr.Message != "" {
			return meetErr.Message
		}
		return "Invalid request."
	case ErrCodeTimeout, ErrCodeContextCanceled:
		return "The request timed out."
	default:
		return "Something went wrong."
	}
}
