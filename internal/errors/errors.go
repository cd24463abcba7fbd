// Package errors provides unified error handling across the pocket-forms system.
//
// SYSTEM ARCHITECTURE ROLE:
// This module serves as the foundation for error handling across all interfaces (CLI, HTTP, MCP, TUI).
// It standardizes how parse, submission, storage and command failures are represented.
//
// KEY RESPONSIBILITIES:
// - Define standardized error codes for every failure a user can act on
// - Provide structured error types (AppError) with severity levels and context
// - Enable interface-specific error formatting while maintaining consistent core error data
// - Classify errors as retryable so callers can decide whether a second attempt makes sense
//
// INTEGRATION POINTS:
// - internal/submit: JSON parse, URL, path and transport failures
// - internal/state: reducer transitions reject invalid input with validation errors
// - internal/storage: backend failures and corrupted payloads
// - internal/commands/types.go: CommandExecutor converts errors to ErrorInfo
// - internal/api/server.go: HTTPErrorHandler maps AppErrors to HTTP status codes and JSON
// - internal/cli: CLIErrorHandler formats AppErrors for terminal display
// - internal/ui/model.go: TUIErrorHandler provides styling for bubble tea error display
//
// USAGE PATTERNS:
// - Create errors: Use constructor functions like JSONParseError(), PathNotFoundError()
// - Wrap errors: Use Wrap() to add context to existing errors
// - Check codes: Use Is(err, code) which unwraps through fmt.Errorf chains
// - Handle errors: Use error handlers specific to interface (CLI, HTTP, TUI)
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Input errors
	ErrCodeJSONParse    ErrorCode = "JSON_PARSE_ERROR"
	ErrCodeInvalidURL   ErrorCode = "INVALID_URL"
	ErrCodePathNotFound ErrorCode = "PATH_NOT_FOUND"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Resource errors
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Service errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeFileCorrupted  ErrorCode = "FILE_CORRUPTED"

	// Network errors
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	ErrCodeTimeout   ErrorCode = "TIMEOUT"
	ErrCodeRejected  ErrorCode = "REQUEST_REJECTED"

	// Command errors
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeInvalidCommand  ErrorCode = "INVALID_COMMAND"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryService    ErrorCategory = "service"
	CategoryStorage    ErrorCategory = "storage"
	CategoryNetwork    ErrorCategory = "network"
	CategoryCommand    ErrorCategory = "command"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeJSONParse, ErrCodeInvalidURL, ErrCodePathNotFound, ErrCodeValidation, ErrCodeMissingField:
		return CategoryValidation, SeverityWarning

	case ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeInternalError:
		return CategoryService, SeverityCritical

	case ErrCodeStorageFailure, ErrCodeFileCorrupted:
		return CategoryStorage, SeverityError

	case ErrCodeTransport, ErrCodeTimeout:
		return CategoryNetwork, SeverityError
	case ErrCodeRejected:
		return CategoryNetwork, SeverityWarning

	case ErrCodeCommandNotFound:
		return CategoryCommand, SeverityInfo
	case ErrCodeInvalidCommand:
		return CategoryCommand, SeverityError

	default:
		return CategorySystem, SeverityError
	}
}

// isRetryable determines if an error is retryable based on its code
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeTransport, ErrCodeTimeout, ErrCodeStorageFailure:
		return true
	default:
		return false
	}
}

// IsAppError checks if an error is, or wraps, an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// Is reports whether err carries an AppError with the given code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// Common error constructors for frequently used errors

func JSONParseError(err error) *AppError {
	appErr := Wrap(err, ErrCodeJSONParse, "Invalid JSON document")
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

func InvalidURLError(raw string, err error) *AppError {
	return Wrap(err, ErrCodeInvalidURL, fmt.Sprintf("Invalid URL '%s'", raw)).WithContext("url", raw)
}

func PathNotFoundError(path, segment string) *AppError {
	return NewAppError(ErrCodePathNotFound, fmt.Sprintf("Path '%s' not found in JSON document", path)).
		WithDetails(fmt.Sprintf("missing or empty key '%s'", segment)).
		WithContext("path", path)
}

func TransportError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("Request failed: %s", operation))
}

func TimeoutError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTimeout, fmt.Sprintf("Request timed out: %s", operation))
}

// RejectedError reports a completed call that the endpoint answered with a 4xx status
func RejectedError(status int) *AppError {
	return NewAppError(ErrCodeRejected, fmt.Sprintf("Endpoint returned %d", status)).
		WithContext("status", status)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func MissingFieldError(field string) *AppError {
	return NewAppError(ErrCodeMissingField, fmt.Sprintf("Missing required field '%s'", field))
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

func CorruptedDataError(key string, err error) *AppError {
	return Wrap(err, ErrCodeFileCorrupted, fmt.Sprintf("Stored value for '%s' is not valid", key))
}

func CommandNotFoundError(command string) *AppError {
	return NewAppError(ErrCodeCommandNotFound, fmt.Sprintf("Command '%s' not found", command))
}

func InvalidCommandError(command string, reason string) *AppError {
	return NewAppError(ErrCodeInvalidCommand, fmt.Sprintf("Invalid command '%s': %s", command, reason))
}
