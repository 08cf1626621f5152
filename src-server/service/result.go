package service

import (
	"errors"
	"fmt"
	"log/slog"
)

type ErrorKind string

const (
	KIND_NONE       = ErrorKind("")
	KIND_VALIDATION = ErrorKind("validation")
	KIND_NOT_FOUND  = ErrorKind("not_found")
	KIND_STORE      = ErrorKind("store")
)

// Discriminated outcome of an operation. Failures never escape as errors;
// Kind lets the transport pick a status code.
type Result[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"-"`
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Turn err into a failed result. Store failures are logged and reported with
// the generic message, keeping driver details out of responses.
func fail[T any](op string, message string, err error) Result[T] {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	switch {
	case errors.As(err, &validationErr):
		return Result[T]{Error: validationErr.Error(), Kind: KIND_VALIDATION}
	case errors.As(err, &notFoundErr):
		return Result[T]{Error: notFoundErr.Error(), Kind: KIND_NOT_FOUND}
	default:
		slog.Error(message, "op", op, "error", err)
		return Result[T]{Error: message, Kind: KIND_STORE}
	}
}

// Back to an error wrapping the sentinel of its kind; nil on success.
func (r Result[T]) Err() error {
	switch {
	case r.Success:
		return nil
	case r.Kind == KIND_VALIDATION:
		return fmt.Errorf("%w: %s", ErrValidation, r.Error)
	case r.Kind == KIND_NOT_FOUND:
		return fmt.Errorf("%w: %s", ErrNotFound, r.Error)
	default:
		return fmt.Errorf("%w: %s", ErrStore, r.Error)
	}
}

// Payload of writes that return nothing.
type Empty struct{}
