package order

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusShipped        Status = "SHIPPED"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

// RevenueStatuses are the statuses whose totals count as revenue.
var RevenueStatuses = []Status{StatusConfirmed, StatusShipped, StatusCompleted}

// OpenStatuses are the entry states still waiting on payment or confirmation.
var OpenStatuses = []Status{StatusPending, StatusPendingPayment}

// validTransitions defines the intended progression. Admin overrides bypass it.
var validTransitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusPendingPayment: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusCompleted, StatusCancelled},
	StatusCompleted:      {}, // terminal state
	StatusCancelled:      {}, // terminal state
}

// ParseStatus accepts any case and rejects unknown values.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := validTransitions[status]; !ok {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
	return status, nil
}

// CanTransition reports whether from -> to follows the intended progression.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionTo checks the intended progression, not admin overrides.
func (o *Order) CanTransitionTo(target Status) bool {
	return CanTransition(o.Status, target)
}

// Source identifies what drove a status change.
type Source string

const (
	SourceAdmin   Source = "admin"
	SourceWebhook Source = "webhook"
	SourceReturn  Source = "return"
	SourceSystem  Source = "system"
)

// StatusChange is one entry of the order's status audit trail.
type StatusChange struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"orderId"`
	From          Status        `json:"from"`
	To            Status        `json:"to"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Actor         string        `json:"actor"`
	Source        Source        `json:"source"`
	ChangedAt     time.Time     `json:"changedAt"`
}

// Advance moves the order along the intended progression only.
func (o *Order) Advance(target Status, actor string, source Source, now time.Time) (*StatusChange, error) {
	if !o.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
	}
	return o.setStatus(target, actor, source, now), nil
}

// Override sets any status regardless of the current one. It is reserved for
// admins and always produces an audit entry.
func (o *Order) Override(target Status, actor string, now time.Time) (*StatusChange, error) {
	if _, ok := validTransitions[target]; !ok {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", target)}
	}
	return o.setStatus(target, actor, SourceAdmin, now), nil
}

// MarkPaid records a provider-reported payment. Orders whose progression
// allows CONFIRMED move there; others keep their status. Returns ErrAlreadyPaid
// when the payment was recorded before, so repeated confirmations are no-ops.
func (o *Order) MarkPaid(actor string, source Source, now time.Time) (*StatusChange, error) {
	if o.PaymentStatus == PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	o.PaymentStatus = PaymentPaid
	if change, err := o.Advance(StatusConfirmed, actor, source, now); err == nil {
		return change, nil
	}
	// Payments never move an order backwards; record the payment in place.
	return o.setStatus(o.Status, actor, source, now), nil
}

func (o *Order) setStatus(target Status, actor string, source Source, now time.Time) *StatusChange {
	now = now.UTC()
	change := &StatusChange{
		OrderID:       o.ID,
		From:          o.Status,
		To:            target,
		PaymentStatus: o.PaymentStatus,
		Actor:         actor,
		Source:        source,
		ChangedAt:     now,
	}
	o.Status = target
	o.UpdatedAt = now
	return change
}
