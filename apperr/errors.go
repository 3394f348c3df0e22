// Package apperr provides the structured errors returned by services and
// translated to HTTP responses at the handler boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code.
type Code string

const (
	CodeValidation      Code = "VALIDATION_FAILED"
	CodeNotFound        Code = "RESOURCE_NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeForbidden       Code = "FORBIDDEN"
	CodeExternalService Code = "EXTERNAL_SERVICE_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewValidation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

func NewNotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found", Status: http.StatusNotFound}
}

func NewConflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

func NewForbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message, Status: http.StatusForbidden}
}

// NewExternalService wraps a failure of a third-party API.
func NewExternalService(service string, err error) *Error {
	return &Error{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("External service '%s' error", service),
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func NewInternal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Status: http.StatusInternalServerError, Err: err}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err, 500 when err is not an *Error.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
