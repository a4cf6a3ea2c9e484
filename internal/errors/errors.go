package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
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

// Wrap wraps an error with additional context, keeping the code of the
// wrapped error when it has one.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    codeFor(err),
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

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// FromDomain classifies a domain error. AppErrors pass through unchanged.
func FromDomain(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return &AppError{Code: codeFor(err), Message: err.Error(), Cause: err}
}

// GetCode returns the error code of the first AppError in the chain, the
// code of a known domain error, or "UNKNOWN"
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	if code := codeFor(err); code != CodeInternalError {
		return code
	}
	return "UNKNOWN"
}

// HTTPStatus maps an error code to the status the API answers with
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidParameter, CodeDimensionMismatch, CodeConfigInvalid, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeEmptyPosterior:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDatabaseError, CodeTimeout:
		return http.StatusServiceUnavailable
	case CodeCanceled:
		return StatusClientClosedRequest
	}
	return http.StatusInternalServerError
}

func codeFor(err error) string {
	switch {
	case stderrors.Is(err, core.ErrInvalidParameter):
		return CodeInvalidParameter
	case stderrors.Is(err, core.ErrDimensionMismatch):
		return CodeDimensionMismatch
	case stderrors.Is(err, core.ErrInvalidConfig):
		return CodeConfigInvalid
	case stderrors.Is(err, core.ErrEmptyPosterior):
		return CodeEmptyPosterior
	case stderrors.Is(err, core.ErrNotFound):
		return CodeNotFound
	case stderrors.Is(err, context.Canceled):
		return CodeCanceled
	case stderrors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	}
	return CodeInternalError
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidParameter  = "INVALID_PARAMETER"
	CodeDimensionMismatch = "DIMENSION_MISMATCH"
	CodeEmptyPosterior    = "EMPTY_POSTERIOR"
	CodeCanceled          = "REQUEST_CANCELED"
	CodeTimeout           = "TIMEOUT"
)

// StatusClientClosedRequest is the non-standard status for a request the
// client abandoned
const StatusClientClosedRequest = 499

// IsCancellation reports whether code marks a canceled or timed out request
func IsCancellation(code string) bool {
	return code == CodeCanceled || code == CodeTimeout
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
