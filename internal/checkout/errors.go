package checkout

import (
	"errors"
	"fmt"
)

var ErrCheckoutUnavailable = errors.New("checkout could not be started")

// UnavailableError reports that the order exists but the hosted checkout
// could not be opened. The order stays PENDING_PAYMENT and can be retried.
type UnavailableError struct {
	OrderID string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%v for order %s: %v", ErrCheckoutUnavailable, e.OrderID, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrCheckoutUnavailable, e.Err}
}
