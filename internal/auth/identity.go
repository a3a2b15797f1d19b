package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Identity is the caller as reported by the auth collaborator. A nil
// *Identity is an anonymous caller.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// ActorID names the caller in audit records.
func (i *Identity) ActorID() string {
	if i == nil || i.UserID == "" {
		return "anonymous"
	}
	return i.UserID
}

// RequireAdmin distinguishes a missing identity from an insufficient one.
func RequireAdmin(i *Identity) error {
	if i == nil {
		return ErrUnauthenticated
	}
	if !i.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, i *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, i)
}

// FromContext returns the caller identity, or nil for anonymous callers.
func FromContext(ctx context.Context) *Identity {
	i, _ := ctx.Value(identityKey{}).(*Identity)
	return i
}
