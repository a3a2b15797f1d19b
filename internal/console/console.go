package console

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/auth"
	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/events"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/store"
	"github.com/meditationastro/medinow-sub000/internal/logging"
	"github.com/meditationastro/medinow-sub000/internal/metrics"
	"github.com/meditationastro/medinow-sub000/internal/notification"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Console is the admin order management surface. Every method requires an
// admin identity.
type Console struct {
	store    store.OrderStore
	notifier notification.Notifier
	events   *events.Emitter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func New(
	orderStore store.OrderStore,
	notifier notification.Notifier,
	emitter *events.Emitter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Console {
	return &Console{
		store:    orderStore,
		notifier: notifier,
		events:   emitter,
		metrics:  m,
		logger:   logging.Component(logger, "console"),
		now:      time.Now,
	}
}

// ListQuery is the raw admin filter input.
type ListQuery struct {
	Status string
	Search string
	Limit  int
	Offset int
}

func (c *Console) List(ctx context.Context, caller *auth.Identity, q ListQuery) ([]order.Order, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	f, err := normalize(q)
	if err != nil {
		return nil, err
	}
	return c.store.List(ctx, f)
}

func normalize(q ListQuery) (order.Filter, error) {
	f := order.Filter{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if strings.TrimSpace(q.Status) != "" {
		status, err := order.ParseStatus(q.Status)
		if err != nil {
			return order.Filter{}, err
		}
		f.Status = status
	}
	switch {
	case f.Limit < 0:
		return order.Filter{}, &order.ValidationError{Field: "limit", Reason: "must not be negative"}
	case f.Limit == 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		return order.Filter{}, &order.ValidationError{Field: "offset", Reason: "must not be negative"}
	}
	return f, nil
}

func (c *Console) Stats(ctx context.Context, caller *auth.Identity) (order.Stats, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return order.Stats{}, err
	}
	return c.store.Stats(ctx)
}

// Get returns the order with its items and status history.
func (c *Console) Get(ctx context.Context, caller *auth.Identity, orderID string) (*order.Detail, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	o, err := c.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	history, err := c.store.History(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &order.Detail{Order: o, History: history}, nil
}

// UpdateStatus applies an administrative override. Any known status may be
// set; setting the current status again changes nothing.
func (c *Console) UpdateStatus(ctx context.Context, caller *auth.Identity, orderID, status string) (*order.Order, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	target, err := order.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		previous order.Status
		changed  bool
	)
	updated, err := c.store.Update(ctx, orderID, func(o *order.Order) (*order.StatusChange, error) {
		previous = o.Status
		if o.Status == target {
			return nil, nil
		}
		changed = true
		return o.Override(target, caller.ActorID(), c.now())
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	c.metrics.StatusChanged(string(target), string(order.SourceAdmin))
	event := c.logger.Info()
	if !order.CanTransition(previous, target) {
		event = c.logger.Warn()
	}
	event.Str("order_id", orderID).
		Str("from", string(previous)).
		Str("to", string(target)).
		Str("actor", caller.ActorID()).
		Msg("order status overridden")

	c.notifier.StatusChanged(ctx, updated, previous)
	c.events.Emit(ctx, order.EventOrderStatusChanged, updated, previous)
	return updated, nil
}

// Delete removes the order with its items and history. confirmed must be
// set by the call site; deletion cannot be undone.
func (c *Console) Delete(ctx context.Context, caller *auth.Identity, orderID string, confirmed bool) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	if !confirmed {
		return &order.ValidationError{Field: "confirm", Reason: "deletion must be confirmed"}
	}

	o, err := c.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, orderID); err != nil {
		return err
	}

	c.logger.Info().Str("order_id", orderID).Str("actor", caller.ActorID()).Msg("order deleted")
	c.events.Emit(ctx, order.EventOrderDeleted, o, "")
	return nil
}
