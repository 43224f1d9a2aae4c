package apperror

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindServer       Kind = "server"
	KindTimeout      Kind = "timeout"
	KindOffline      Kind = "offline"
)

// AppError is a classified failure that the UI can turn into a notification.
type AppError struct {
	Kind    Kind         `json:"kind"`
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Retryable reports whether repeating the same request may succeed without
// user correction.
func (e *AppError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindOffline, KindServer, KindRateLimited:
		return true
	default:
		return false
	}
}

var (
	ErrUnauthorized = New(KindUnauthorized, "Unauthorized")
	ErrForbidden    = New(KindForbidden, "Forbidden")
	ErrNotFound     = New(KindNotFound, "Resource not found")
	ErrTimeout      = New(KindTimeout, "Backend did not respond in time")
	ErrOffline      = New(KindOffline, "Backend is unreachable")
)

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Code: statusForKind(kind), Message: message}
}

func NewValidation(message string) *AppError {
	return New(KindValidation, message)
}

func NewValidationFields(fieldErrors []FieldError) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// FromStatus classifies a backend HTTP status. An empty message falls back to
// the standard status text.
func FromStatus(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	var kind Kind
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		kind = KindValidation
	case status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case status == http.StatusForbidden:
		kind = KindForbidden
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusConflict:
		kind = KindConflict
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		kind = KindTimeout
	case status >= 500:
		kind = KindServer
	default:
		kind = KindValidation
	}
	return &AppError{Kind: kind, Code: status, Message: message}
}

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(err error) *AppError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return ErrOffline
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &AppError{Kind: KindOffline, Code: http.StatusServiceUnavailable, Message: urlErr.Err.Error()}
	}
	return &AppError{Kind: KindServer, Code: http.StatusBadGateway, Message: err.Error()}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError converts an error to AppError if possible. Unclassified errors
// become server errors carrying the original message.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: KindServer, Code: http.StatusInternalServerError, Message: err.Error()}
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return GetAppError(err).Kind
}

func Retryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable()
	}
	return false
}

// HTTPStatus is the status the terminal API answers with for err.
// Unclassified errors are internal failures.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return statusForKind(appErr.Kind)
	}
	return http.StatusInternalServerError
}

func statusForKind(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindOffline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
