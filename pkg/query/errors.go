package query

import (
	"errors"
	"fmt"
)

// Sentinel errors. Errors from catalog lookups are wrapped together with
// ErrInvalidArgument so both errors.Is checks succeed.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnsupported     = errors.New("unsupported operation")
)

// UnsupportedError reports an operation that a query kind does not offer.
type UnsupportedError struct {
	Query string
	Op    string
	// Hint suggests the query kind to use instead.
	Hint string
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("%s does not support %s", e.Query, e.Op)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

// Is makes errors.Is(err, ErrUnsupported) true.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
}
