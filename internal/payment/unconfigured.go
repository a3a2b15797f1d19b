package payment

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("payment gateway is not configured")

// Unconfigured rejects every call. It stands in when no gateway URL is set,
// so online checkouts fail the same way an unreachable provider would.
type Unconfigured struct{}

func (Unconfigured) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	return nil, &GatewayError{Op: OpCreateSession, Err: ErrNotConfigured}
}

func (Unconfigured) SessionStatus(ctx context.Context, sessionID string) (*SessionState, error) {
	return nil, &GatewayError{Op: OpSessionStatus, Err: ErrNotConfigured}
}
