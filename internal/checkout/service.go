package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/catalog"
	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/events"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/store"
	"github.com/meditationastro/medinow-sub000/internal/logging"
	"github.com/meditationastro/medinow-sub000/internal/metrics"
	"github.com/meditationastro/medinow-sub000/internal/notification"
	"github.com/meditationastro/medinow-sub000/internal/payment"
)

const gatewayActor = "gateway"

// Config holds the shop-level checkout settings.
type Config struct {
	Currency      string
	SuccessURL    string
	CancelURL     string
	WebhookSecret string
}

// Result is a placed order and, for online payment, where to send the
// customer next.
type Result struct {
	Order       *order.Order `json:"order"`
	RedirectURL string       `json:"redirectUrl,omitempty"`
}

// Service orchestrates order placement and payment confirmation.
type Service struct {
	store    store.OrderStore
	catalog  catalog.Catalog
	gateway  payment.Gateway
	notifier notification.Notifier
	events   *events.Emitter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	cfg      Config
	now      func() time.Time
}

func NewService(
	orderStore store.OrderStore,
	cat catalog.Catalog,
	gateway payment.Gateway,
	notifier notification.Notifier,
	emitter *events.Emitter,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg Config,
) *Service {
	return &Service{
		store:    orderStore,
		catalog:  cat,
		gateway:  gateway,
		notifier: notifier,
		events:   emitter,
		metrics:  m,
		logger:   logging.Component(logger, "checkout"),
		cfg:      cfg,
		now:      time.Now,
	}
}

// PlaceOrder validates and persists the order before any external call. For
// online payment it then opens a hosted checkout. A gateway failure leaves
// the order in place and is reported as *UnavailableError.
func (s *Service) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*Result, error) {
	provider, err := order.ParseProvider(cmd.PaymentProvider)
	if err != nil {
		return nil, err
	}

	currency := cmd.Currency
	if strings.TrimSpace(currency) == "" {
		currency = s.cfg.Currency
	}
	currency, err = order.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}

	lines, err := s.resolveLines(ctx, cmd, currency)
	if err != nil {
		return nil, err
	}

	o, err := order.New(order.Draft{
		UserID: cmd.UserID,
		Customer: order.Customer{
			FullName: cmd.Customer.FullName,
			Email:    cmd.Customer.Email,
			Phone:    cmd.Customer.Phone,
		},
		Notes:    cmd.Notes,
		Currency: currency,
		Lines:    lines,
		Provider: provider,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, o); err != nil {
		s.logger.Error().Err(err).Str("order_id", o.ID).Msg("persist order")
		return nil, err
	}
	s.metrics.OrderCreated(string(o.PaymentProvider))
	s.logger.Info().
		Str("order_id", o.ID).
		Str("provider", string(o.PaymentProvider)).
		Str("total", o.Total.StringFixed(2)).
		Str("customer", logging.MaskEmail(o.Customer.Email)).
		Msg("order placed")

	result := &Result{Order: o}
	var checkoutErr error
	if o.PaymentProvider == order.ProviderOnline {
		result.RedirectURL, checkoutErr = s.openSession(ctx, o)
	}

	s.notifier.OrderPlaced(ctx, o)
	s.events.Emit(ctx, order.EventOrderPlaced, o, "")

	if checkoutErr != nil {
		return nil, checkoutErr
	}
	return result, nil
}

// RetryPayment opens a new hosted checkout for an existing unpaid online
// order. The (id, email) pair is the credential; a mismatch is reported
// exactly like an unknown id.
func (s *Service) RetryPayment(ctx context.Context, cmd RetryPayment) (*Result, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.EmailMatches(cmd.Email) {
		return nil, order.ErrOrderNotFound
	}

	switch {
	case o.PaymentProvider != order.ProviderOnline:
		return nil, &order.ValidationError{Field: "paymentProvider", Reason: "order does not use online payment"}
	case o.PaymentStatus == order.PaymentPaid:
		return nil, &order.ValidationError{Field: "status", Reason: "order is already paid"}
	case o.Status != order.StatusPendingPayment:
		return nil, &order.ValidationError{Field: "status", Reason: fmt.Sprintf("order in status %s cannot be paid", o.Status)}
	}

	redirect, err := s.openSession(ctx, o)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", o.ID).Msg("checkout retried")
	return &Result{Order: o, RedirectURL: redirect}, nil
}

// ConfirmPayment marks the order paid. A repeated confirmation is a no-op:
// it returns the stored order with changed=false and triggers no
// notification or event.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string, source order.Source) (*order.Order, bool, error) {
	var previous order.Status
	updated, err := s.store.Update(ctx, orderID, func(o *order.Order) (*order.StatusChange, error) {
		if o.PaymentProvider != order.ProviderOnline {
			return nil, &order.ValidationError{Field: "paymentProvider", Reason: "order does not use online payment"}
		}
		previous = o.Status
		return o.MarkPaid(gatewayActor, source, s.now())
	})
	if errors.Is(err, order.ErrAlreadyPaid) {
		s.logger.Info().Str("order_id", orderID).Str("source", string(source)).Msg("duplicate payment confirmation ignored")
		current, err := s.store.Get(ctx, orderID)
		if err != nil {
			return nil, false, err
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.metrics.StatusChanged(string(updated.Status), string(source))
	if updated.Status == previous {
		s.logger.Warn().
			Str("order_id", orderID).
			Str("status", string(updated.Status)).
			Msg("payment confirmed for an order past its entry state, status kept")
	} else {
		s.logger.Info().Str("order_id", orderID).Str("source", string(source)).Msg("payment confirmed")
	}

	s.notifier.PaymentConfirmed(ctx, updated, previous)
	s.events.Emit(ctx, order.EventOrderPaymentConfirmed, updated, previous)
	return updated, true, nil
}

// HandleWebhook verifies and applies a gateway notification. Unknown event
// types and unknown orders are acknowledged so the gateway stops retrying.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	event, err := payment.ParseWebhook(s.cfg.WebhookSecret, body, signature)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejected webhook")
		return err
	}
	if event.Type != payment.EventCheckoutCompleted {
		s.logger.Debug().Str("event_id", event.EventID).Str("type", event.Type).Msg("ignoring webhook event")
		return nil
	}

	_, _, err = s.ConfirmPayment(ctx, event.OrderID, order.SourceWebhook)
	if errors.Is(err, order.ErrOrderNotFound) || order.IsValidation(err) {
		s.logger.Warn().Err(err).Str("order_id", event.OrderID).Str("event_id", event.EventID).Msg("webhook for unusable order")
		return nil
	}
	return err
}

// HandleReturn confirms payment when the customer comes back from the hosted
// checkout, in case the webhook has not arrived yet.
func (s *Service) HandleReturn(ctx context.Context, orderID, sessionID string) (*order.Order, error) {
	if orderID == "" || sessionID == "" {
		return nil, order.ErrOrderNotFound
	}

	state, err := s.gateway.SessionStatus(ctx, sessionID)
	s.metrics.GatewayRequest(payment.OpSessionStatus, err)
	if err != nil {
		return nil, &UnavailableError{OrderID: orderID, Err: err}
	}
	if state.OrderID != orderID {
		return nil, order.ErrOrderNotFound
	}
	if !state.Paid {
		return s.store.Get(ctx, orderID)
	}

	o, _, err := s.ConfirmPayment(ctx, orderID, order.SourceReturn)
	return o, err
}

func (s *Service) openSession(ctx context.Context, o *order.Order) (string, error) {
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		OrderID:    o.ID,
		Email:      o.Customer.Email,
		Currency:   o.Currency,
		Amount:     o.Total,
		SuccessURL: returnURL(s.cfg.SuccessURL, o.ID, true),
		CancelURL:  returnURL(s.cfg.CancelURL, o.ID, false),
	})
	s.metrics.GatewayRequest(payment.OpCreateSession, err)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", o.ID).Msg("open checkout session")
		return "", &UnavailableError{OrderID: o.ID, Err: err}
	}
	return session.URL, nil
}

func (s *Service) resolveLines(ctx context.Context, cmd PlaceOrder, currency string) ([]order.Line, error) {
	lines := make([]order.Line, 0, len(cmd.Items))
	for i, item := range cmd.Items {
		if item.ProductID == "" {
			if !cmd.TrustPrices || item.UnitPrice == nil {
				return nil, &order.ValidationError{Field: fmt.Sprintf("items[%d].productId", i), Reason: "is required"}
			}
			lines = append(lines, order.Line{
				ProductTitle: item.ProductTitle,
				VersionTitle: item.VersionTitle,
				UnitPrice:    *item.UnitPrice,
				Quantity:     item.Quantity,
			})
			continue
		}

		snap, err := s.catalog.Lookup(ctx, item.ProductID, item.VersionID)
		switch {
		case errors.Is(err, catalog.ErrUnknownProduct):
			return nil, &order.ValidationError{Field: fmt.Sprintf("items[%d].productId", i), Reason: "unknown product"}
		case errors.Is(err, catalog.ErrVersionRequired):
			return nil, &order.ValidationError{Field: fmt.Sprintf("items[%d].versionId", i), Reason: "is required for this product"}
		case err != nil:
			return nil, err
		}
		if !strings.EqualFold(snap.Currency, currency) {
			return nil, &order.ValidationError{Field: fmt.Sprintf("items[%d].currency", i), Reason: fmt.Sprintf("priced in %s, order is in %s", snap.Currency, currency)}
		}
		lines = append(lines, order.Line{
			ProductTitle: snap.ProductTitle,
			VersionTitle: snap.VersionTitle,
			UnitPrice:    snap.UnitPrice,
			Quantity:     item.Quantity,
		})
	}
	return lines, nil
}

// returnURL appends the order id and, on success, the gateway's session id
// template to base.
func returnURL(base, orderID string, withSession bool) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return base
	}
	q := u.Query()
	q.Set("order_id", orderID)
	u.RawQuery = q.Encode()
	if withSession {
		u.RawQuery += "&session_id={CHECKOUT_SESSION_ID}"
	}
	return u.String()
}
