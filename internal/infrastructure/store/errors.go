package store

import (
	"errors"
	"fmt"
)

// ErrPersistence marks storage failures. Callers render it as a generic error.
var ErrPersistence = errors.New("persistence failure")

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
