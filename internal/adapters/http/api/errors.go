package api

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
)

// Wrap annotates err with the operation that failed.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, op)
}

// WrapKind annotates err with op and classifies it as kind, so both
// errors.Is(err, kind) and errors.Is(err, cause) hold.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns a bare error of kind for op.
func NewKind(op string, kind error) error {
	return pkgerrors.WithMessage(kind, op)
}
