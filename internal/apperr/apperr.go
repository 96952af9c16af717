// Package apperr defines the typed errors shared by the gateway, parser,
// store and workflow layers.
package apperr

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	TypeValidation        ErrorType = "validation"
	TypeTransport         ErrorType = "transport"
	TypeUpstream          ErrorType = "upstream"
	TypeEmptyResponse     ErrorType = "empty_response"
	TypeMalformedResponse ErrorType = "malformed_response"
	TypePersistence       ErrorType = "persistence"
	TypeNotFound          ErrorType = "not_found"
	TypeConflict          ErrorType = "conflict"
	TypeSuperseded        ErrorType = "superseded"
)

type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(errType ErrorType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

func Validation(message string) *AppError {
	return New(TypeValidation, message, nil)
}

func Transport(message string, err error) *AppError {
	return New(TypeTransport, message, err)
}

func Upstream(message string) *AppError {
	return New(TypeUpstream, message, nil)
}

func EmptyResponse(message string) *AppError {
	return New(TypeEmptyResponse, message, nil)
}

func Malformed(message string, err error) *AppError {
	return New(TypeMalformedResponse, message, err)
}

func Persistence(message string, err error) *AppError {
	return New(TypePersistence, message, err)
}

func NotFound(message string) *AppError {
	return New(TypeNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return New(TypeConflict, message, nil)
}

func Superseded(message string) *AppError {
	return New(TypeSuperseded, message, nil)
}

// TypeOf returns the type of the first AppError in err's chain, or "" if
// there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Is reports whether err carries an AppError of the given type.
func Is(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// IsGateway reports whether err came from the LLM call or its parsing,
// the failures that abort a workflow transition.
func IsGateway(err error) bool {
	switch TypeOf(err) {
	case TypeTransport, TypeUpstream, TypeEmptyResponse, TypeMalformedResponse:
		return true
	}
	return false
}
