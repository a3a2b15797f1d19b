package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced           = "order.placed"
	EventOrderStatusChanged    = "order.status_changed"
	EventOrderPaymentConfirmed = "order.payment_confirmed"
	EventOrderDeleted          = "order.deleted"
)

// Event is the payload published for downstream consumers. It carries no
// customer contact data.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	OrderID       string          `json:"order_id"`
	Status        Status          `json:"status,omitempty"`
	Previous      Status          `json:"previous_status,omitempty"`
	PaymentStatus PaymentStatus   `json:"payment_status,omitempty"`
	Provider      PaymentProvider `json:"payment_provider,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency,omitempty"`
	ItemCount     int             `json:"item_count,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewEvent snapshots the order for an event of the given type.
func NewEvent(eventType string, o *Order, previous Status, now time.Time) Event {
	return Event{
		Type:          eventType,
		OrderID:       o.ID,
		Status:        o.Status,
		Previous:      previous,
		PaymentStatus: o.PaymentStatus,
		Provider:      o.PaymentProvider,
		Total:         o.Total,
		Currency:      o.Currency,
		ItemCount:     len(o.Items),
		OccurredAt:    now.UTC(),
	}
}
