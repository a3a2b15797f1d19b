package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/logging"
	"github.com/meditationastro/medinow-sub000/internal/metrics"
)

const publishTimeout = 3 * time.Second

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, key string, event any) error { return nil }

// Emitter publishes order events after a successful commit. Publishing is
// best-effort: failures are logged and counted, never returned.
type Emitter struct {
	publisher Publisher
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewEmitter(publisher Publisher, logger zerolog.Logger, m *metrics.Metrics) *Emitter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Emitter{
		publisher: publisher,
		logger:    logging.Component(logger, "events"),
		metrics:   m,
		now:       time.Now,
	}
}

// Emit snapshots o into an event of the given type and publishes it keyed by
// order id. The caller's cancellation does not abort the publish.
func (e *Emitter) Emit(ctx context.Context, eventType string, o *order.Order, previous order.Status) {
	event := order.NewEvent(eventType, o, previous, e.now())
	event.ID = uuid.New().String()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := e.publisher.Publish(ctx, o.ID, event)
	e.metrics.EventPublished(eventType, err)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("order_id", o.ID).
			Str("event_type", eventType).
			Msg("publish order event")
		return
	}
	e.logger.Debug().
		Str("order_id", o.ID).
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Msg("order event published")
}
