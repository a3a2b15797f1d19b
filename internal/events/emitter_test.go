package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []order.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event.(order.Event))
	return p.err
}

func testOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.New(order.Draft{
		Customer: order.Customer{FullName: "Ada Lovelace", Email: "ada@example.com"},
		Currency: "USD",
		Provider: order.ProviderOnline,
		Lines:    []order.Line{{ProductTitle: "Reading", UnitPrice: decimal.RequireFromString("19.99"), Quantity: 1}},
	}, time.Now())
	require.NoError(t, err)
	return o
}

func TestEmitter_Emit(t *testing.T) {
	pub := &recordingPublisher{}
	e := NewEmitter(pub, zerolog.Nop(), nil)
	o := testOrder(t)

	e.Emit(context.Background(), order.EventOrderPlaced, o, "")

	require.Len(t, pub.events, 1)
	assert.Equal(t, o.ID, pub.keys[0])
	ev := pub.events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, order.EventOrderPlaced, ev.Type)
	assert.Equal(t, order.StatusPendingPayment, ev.Status)
	assert.Equal(t, 1, ev.ItemCount)
	assert.True(t, ev.Total.Equal(decimal.RequireFromString("19.99")))
}

func TestEmitter_FailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := NewEmitter(pub, zerolog.Nop(), m)

	assert.NotPanics(t, func() {
		e.Emit(context.Background(), order.EventOrderDeleted, testOrder(t), "")
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(order.EventOrderDeleted, "error")))
}

func TestEmitter_IgnoresCallerCancellation(t *testing.T) {
	var sawCancelled bool
	pub := publisherFunc(func(ctx context.Context, key string, event any) error {
		sawCancelled = ctx.Err() != nil
		return nil
	})
	e := NewEmitter(pub, zerolog.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e.Emit(ctx, order.EventOrderStatusChanged, testOrder(t), order.StatusPending)

	assert.False(t, sawCancelled)
}

func TestNewEmitter_NilPublisher(t *testing.T) {
	e := NewEmitter(nil, zerolog.Nop(), nil)

	assert.NotPanics(t, func() {
		e.Emit(context.Background(), order.EventOrderPlaced, testOrder(t), "")
	})
}

type publisherFunc func(ctx context.Context, key string, event any) error

func (f publisherFunc) Publish(ctx context.Context, key string, event any) error {
	return f(ctx, key, event)
}
