package notification

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/email"
	"github.com/meditationastro/medinow-sub000/internal/logging"
	"github.com/meditationastro/medinow-sub000/internal/metrics"
)

// Mailer is the email delivery collaborator.
type Mailer interface {
	Send(tpl email.Template, to string, data email.OrderData) error
}

// Notifier is what order workflows call after a successful write.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *order.Order)
	StatusChanged(ctx context.Context, o *order.Order, previous order.Status)
	PaymentConfirmed(ctx context.Context, o *order.Order, previous order.Status)
}

// Dispatcher sends best-effort emails. Failures are logged and counted,
// never returned. Each call sends at most once per recipient.
type Dispatcher struct {
	mailer     Mailer
	ownerEmail string
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	async bool
	wg    sync.WaitGroup
}

type Option func(*Dispatcher)

// WithAsync sends in background goroutines. Call Wait before shutdown.
func WithAsync() Option {
	return func(d *Dispatcher) { d.async = true }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(mailer Mailer, ownerEmail string, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mailer:     mailer,
		ownerEmail: ownerEmail,
		logger:     logging.Component(logger, "notifier"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) OrderPlaced(ctx context.Context, o *order.Order) {
	data := orderData(o, "")
	d.dispatch(o.ID, "order_placed_owner", email.TemplateOwnerNewOrder, d.ownerEmail, data)
	d.dispatch(o.ID, "order_placed_customer", email.TemplateOrderReceived, o.Customer.Email, data)
}

func (d *Dispatcher) StatusChanged(ctx context.Context, o *order.Order, previous order.Status) {
	d.dispatch(o.ID, "status_changed_owner", email.TemplateOwnerStatus, d.ownerEmail, orderData(o, previous))
}

func (d *Dispatcher) PaymentConfirmed(ctx context.Context, o *order.Order, previous order.Status) {
	data := orderData(o, previous)
	d.dispatch(o.ID, "payment_confirmed_customer", email.TemplatePaymentConfirmed, o.Customer.Email, data)
	d.dispatch(o.ID, "payment_confirmed_owner", email.TemplateOwnerStatus, d.ownerEmail, data)
}

// Wait blocks until every background send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(orderID, kind string, tpl email.Template, to string, data email.OrderData) {
	if to == "" {
		d.logger.Debug().Str("order_id", orderID).Str("kind", kind).Msg("no recipient configured, skipping notification")
		return
	}
	if !d.async {
		d.deliver(orderID, kind, tpl, to, data)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(orderID, kind, tpl, to, data)
	}()
}

func (d *Dispatcher) deliver(orderID, kind string, tpl email.Template, to string, data email.OrderData) {
	err := d.mailer.Send(tpl, to, data)
	d.metrics.Notification(kind, err)
	if err != nil {
		d.logger.Warn().Err(err).
			Str("order_id", orderID).
			Str("kind", kind).
			Str("to", logging.MaskEmail(to)).
			Msg("notification failed")
		return
	}
	d.logger.Info().
		Str("order_id", orderID).
		Str("kind", kind).
		Str("to", logging.MaskEmail(to)).
		Msg("notification sent")
}

func orderData(o *order.Order, previous order.Status) email.OrderData {
	items := make([]email.OrderItem, len(o.Items))
	for i, item := range o.Items {
		title := item.ProductTitle
		if item.VersionTitle != "" {
			title += " (" + item.VersionTitle + ")"
		}
		items[i] = email.OrderItem{
			Title:     title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}
	return email.OrderData{
		OrderID:         o.ID,
		CustomerName:    o.Customer.FullName,
		CustomerEmail:   o.Customer.Email,
		CustomerPhone:   o.Customer.Phone,
		Notes:           o.Notes,
		Currency:        o.Currency,
		Total:           o.Total,
		Items:           items,
		PaymentProvider: string(o.PaymentProvider),
		Status:          string(o.Status),
		PreviousStatus:  string(previous),
	}
}
