package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Services wrap them in *Error so callers can match with errors.Is
// and still show the user-facing message.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrOutOfStock        = errors.New("out of stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternal          = errors.New("internal error")
)

type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind, or ErrInternal for anything unclassified.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	for _, kind := range []error{
		ErrNotFound, ErrInvalidInput, ErrOutOfStock, ErrEmptyCart, ErrInvalidAddress,
		ErrDuplicateCategory, ErrConflict, ErrUnauthorized, ErrForbidden,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// MessageOf returns the user-facing message. Unclassified errors never leak their cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if KindOf(err) == ErrInternal {
		return "internal server error"
	}
	return err.Error()
}
