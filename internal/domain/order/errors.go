package order

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = &ValidationError{Field: "items", Reason: "order must have at least one item"}
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrAlreadyPaid       = errors.New("order is already paid")
)

// ValidationError reports a rejected input and the field that caused it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}
