package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindModelNotFound
	KindBackendUnavailable
	KindProtocolViolation
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindModelNotFound:
		return "model_not_found"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindProtocolViolation:
		return "protocol_violation"
	case KindUpstream:
		return "upstream_error"
	default:
		return "internal_error"
	}
}

// StatusError is an error with an HTTP status code
type StatusError struct {
	StatusCode   int       `json:"-"`
	Kind         ErrorKind `json:"-"`
	ErrorMessage string    `json:"error"`
}

func (e *StatusError) Error() string { return e.ErrorMessage }

// ErrBadRequest creates a 400 Bad Request error for a malformed inbound request
func ErrBadRequest(msg string) *StatusError {
	return &StatusError{
		StatusCode:   http.StatusBadRequest,
		Kind:         KindInternal,
		ErrorMessage: msg,
	}
}

// ErrModelNotFound creates a 404 for a model the backend does not serve
func ErrModelNotFound(model, backend string) *StatusError {
	return &StatusError{
		StatusCode:   http.StatusNotFound,
		Kind:         KindModelNotFound,
		ErrorMessage: fmt.Sprintf("Model %q not found on %s", model, backend),
	}
}

// ErrBackendUnavailable creates a 503 for a backend that cannot be reached
func ErrBackendUnavailable(msg string) *StatusError {
	return &StatusError{
		StatusCode:   http.StatusServiceUnavailable,
		Kind:         KindBackendUnavailable,
		ErrorMessage: msg,
	}
}

// ErrProtocolViolation creates a 500 for a successful response without usable data
func ErrProtocolViolation(msg string) *StatusError {
	return &StatusError{
		StatusCode:   http.StatusInternalServerError,
		Kind:         KindProtocolViolation,
		ErrorMessage: msg,
	}
}

// ErrUpstream creates a 500 for any other backend failure
func ErrUpstream(msg string) *StatusError {
	return &StatusError{
		StatusCode:   http.StatusInternalServerError,
		Kind:         KindUpstream,
		ErrorMessage: msg,
	}
}

// ErrInternalServer creates a 500 Internal Server Error
func ErrInternalServer(msg string) *StatusError {
	return &StatusError{
		StatusCode:   http.StatusInternalServerError,
		Kind:         KindInternal,
		ErrorMessage: msg,
	}
}

// KindOf returns the kind of a StatusError anywhere in err's chain.
func KindOf(err error) ErrorKind {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
