package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeExternal   ErrorType = "external_api"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches another AppError by type and code, otherwise defers to the internal error
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}

	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}

	for k, v := range e.Context {
		fields = append(fields, k, v)
	}

	return fields
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  caller(2),
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: err,
		Source:   caller(2),
		Context:  make(map[string]interface{}),
	}
}

func caller(skip int) string {
	_, file, line, _ := runtime.Caller(skip)
	return fmt.Sprintf("%s:%d", file, line)
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for foreign errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// Handler provides error handling strategies
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new error handler
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs an error according to its type. Alerting is a side channel,
// so every failure on that path ends here instead of reaching the user.
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		h.handleAppError(ctx, appErr)
	} else {
		h.logger.ErrorContext(ctx, "Unhandled error", "error", err.Error())
	}
}

func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	switch err.Type {
	case ErrorTypeValidation:
		h.logger.WarnContext(ctx, "Validation error", err.LogFields()...)
	case ErrorTypeTransport, ErrorTypeTimeout:
		// An absent or unreachable peer is steady state, not a failure.
		h.logger.WarnContext(ctx, "Transport error", err.LogFields()...)
	case ErrorTypeDatabase:
		h.logger.ErrorContext(ctx, "Persistence error", err.LogFields()...)
	case ErrorTypeExternal, ErrorTypeInternal, ErrorTypeConfig:
		h.logger.ErrorContext(ctx, "Critical error", err.LogFields()...)
	default:
		h.logger.ErrorContext(ctx, "Unknown error type", err.LogFields()...)
	}
}

// Predefined errors
var (
	ErrInvalidInput     = New(ErrorTypeValidation, "INVALID_INPUT", "Invalid input provided")
	ErrMalformedMessage = New(ErrorTypeValidation, "MALFORMED_MESSAGE", "Malformed message")
	ErrUnknownMessage   = New(ErrorTypeValidation, "UNKNOWN_MESSAGE", "Unknown message type")
	ErrNotFound         = New(ErrorTypeDatabase, "NOT_FOUND", "Record not found")
	ErrTransportClosed  = New(ErrorTypeTransport, "TRANSPORT_CLOSED", "Transport closed")
	ErrTransportBusy    = New(ErrorTypeTransport, "TRANSPORT_QUEUE_FULL", "Transport queue full")
	ErrTimeout          = New(ErrorTypeTimeout, "TIMEOUT", "Operation timed out")
)

// Convenience functions for common errors
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, "VALIDATION", message)
}

func NewMalformedMessageError(reason string) *AppError {
	return New(ErrorTypeValidation, "MALFORMED_MESSAGE", "Malformed message: "+reason)
}

func NewUnknownMessageError(kind string) *AppError {
	return New(ErrorTypeValidation, "UNKNOWN_MESSAGE", "Unknown message type").
		WithContext("message_type", kind)
}

func NewDatabaseError(err error) *AppError {
	return Wrap(err, ErrorTypeDatabase, "DB_ERROR", "Database operation failed")
}

func NewPersistenceError(err error, store string) *AppError {
	return Wrap(err, ErrorTypeDatabase, "PERSIST_ERROR", fmt.Sprintf("%s persistence failed", store)).
		WithContext("store", store)
}

func NewTransportError(err error, op string) *AppError {
	return Wrap(err, ErrorTypeTransport, "TRANSPORT_ERROR", fmt.Sprintf("%s failed", op)).
		WithContext("operation", op)
}

func NewExternalAPIError(err error, api string) *AppError {
	return Wrap(err, ErrorTypeExternal, "EXTERNAL_API", fmt.Sprintf("%s API error", api)).
		WithContext("api", api)
}

func NewConfigError(message string) *AppError {
	return New(ErrorTypeConfig, "CONFIG", message)
}

func NewTimeoutError(operation string) *AppError {
	return New(ErrorTypeTimeout, "TIMEOUT", fmt.Sprintf("%s operation timed out", operation)).
		WithContext("operation", operation)
}
