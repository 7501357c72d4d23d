package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, preserving the code when the
// wrapped error already carries one.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if the error carries one, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error codes. The first block is the analysis-flow taxonomy; every failure a
// user action can hit maps to exactly one of these.
const (
	CodeNoDatasetLoaded     = "NO_DATASET_LOADED"
	CodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	CodeTimeout             = "TIMEOUT"
	CodeHTTPStatus          = "HTTP_STATUS"
	CodeServerReported      = "SERVER_REPORTED"
	CodeDecode              = "DECODE"
	CodeSurfaceNotFound     = "SURFACE_NOT_FOUND"
	CodeInsufficientData    = "INSUFFICIENT_DATA"

	CodeConfigInvalid = "CONFIG_INVALID"
	CodeInternal      = "INTERNAL_ERROR"
)

// Common error constructors

func NoDatasetLoaded() *AppError {
	return New(CodeNoDatasetLoaded, "no dataset loaded - upload a file first")
}

func UnsupportedFileType(filename string) *AppError {
	return New(CodeUnsupportedFileType, fmt.Sprintf("unsupported file type: %s", filename))
}

func Timeout(operation string, cause error) *AppError {
	return &AppError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("%s request timed out", operation),
		Cause:   cause,
	}
}

func HTTPStatus(status string) *AppError {
	return New(CodeHTTPStatus, fmt.Sprintf("server returned %s", status))
}

func ServerReported(message string) *AppError {
	return New(CodeServerReported, message)
}

func Decode(cause error) *AppError {
	return &AppError{
		Code:    CodeDecode,
		Message: "malformed response from analysis backend",
		Cause:   cause,
	}
}

func SurfaceNotFound(slot string) *AppError {
	return New(CodeSurfaceNotFound, fmt.Sprintf("no drawing surface registered for chart slot %q", slot))
}

func InsufficientData(message string) *AppError {
	return New(CodeInsufficientData, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}
