package lookup

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/auth"
	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/store"
	"github.com/meditationastro/medinow-sub000/internal/logging"
)

// Service answers read-only order lookups for non-admin callers.
type Service struct {
	store  store.OrderStore
	logger zerolog.Logger
}

func NewService(orderStore store.OrderStore, logger zerolog.Logger) *Service {
	return &Service{store: orderStore, logger: logging.Component(logger, "lookup")}
}

// Track returns the order only when email matches the stored customer email.
// An unknown id and a wrong email both yield order.ErrOrderNotFound.
func (s *Service) Track(ctx context.Context, orderID, email string) (*order.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || strings.TrimSpace(email) == "" {
		return nil, order.ErrOrderNotFound
	}

	o, err := s.store.Get(ctx, orderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		s.logger.Debug().Msg("track miss")
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if !o.EmailMatches(email) {
		s.logger.Debug().Msg("track miss")
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

// ForCaller returns an order to an admin or to the user who placed it.
// Orders owned by someone else are reported as not found.
func (s *Service) ForCaller(ctx context.Context, caller *auth.Identity, orderID string) (*order.Order, error) {
	if caller == nil {
		return nil, auth.ErrUnauthenticated
	}

	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller.IsAdmin() {
		return o, nil
	}
	if o.UserID == "" || o.UserID != caller.UserID {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}
