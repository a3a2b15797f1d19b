package order

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentProvider string

const (
	ProviderManual PaymentProvider = "MANUAL"
	ProviderOnline PaymentProvider = "ONLINE"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

// ParseProvider normalizes a payment provider name.
func ParseProvider(s string) (PaymentProvider, error) {
	switch p := PaymentProvider(strings.ToUpper(strings.TrimSpace(s))); p {
	case ProviderManual, ProviderOnline:
		return p, nil
	}
	return "", &ValidationError{Field: "paymentProvider", Reason: "must be MANUAL or ONLINE"}
}

// Customer is captured from the checkout form, never derived from an account.
type Customer struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// Item is a priced line copied from the catalog at order time.
type Item struct {
	ID           string          `json:"id"`
	ProductTitle string          `json:"productTitle"`
	VersionTitle string          `json:"versionTitle,omitempty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId,omitempty"`
	Customer        Customer        `json:"customer"`
	Notes           string          `json:"notes,omitempty"`
	Currency        string          `json:"currency"`
	Items           []Item          `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	PaymentProvider PaymentProvider `json:"paymentProvider"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Line is the input for one order item before totals are computed.
type Line struct {
	ProductTitle string
	VersionTitle string
	UnitPrice    decimal.Decimal
	Quantity     int
}

// Draft holds everything needed to construct a new Order.
type Draft struct {
	UserID   string
	Customer Customer
	Notes    string
	Currency string
	Lines    []Line
	Provider PaymentProvider
}

// New validates the draft and builds an order with computed line totals.
// Nothing is persisted here.
func New(d Draft, now time.Time) (*Order, error) {
	customer := Customer{
		FullName: strings.TrimSpace(d.Customer.FullName),
		Email:    strings.TrimSpace(d.Customer.Email),
		Phone:    strings.TrimSpace(d.Customer.Phone),
	}
	if customer.FullName == "" {
		return nil, &ValidationError{Field: "customer.fullName", Reason: "is required"}
	}
	if customer.Email == "" {
		return nil, &ValidationError{Field: "customer.email", Reason: "is required"}
	}
	if !strings.Contains(customer.Email, "@") {
		return nil, &ValidationError{Field: "customer.email", Reason: "is not an email address"}
	}

	currency, err := ParseCurrency(d.Currency)
	if err != nil {
		return nil, err
	}

	var initial Status
	switch d.Provider {
	case ProviderManual:
		initial = StatusPending
	case ProviderOnline:
		initial = StatusPendingPayment
	default:
		return nil, &ValidationError{Field: "paymentProvider", Reason: "must be MANUAL or ONLINE"}
	}

	if len(d.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	items := make([]Item, 0, len(d.Lines))
	for i, l := range d.Lines {
		item, err := newItem(i, l)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	now = now.UTC()
	return &Order{
		ID:              uuid.New().String(),
		UserID:          d.UserID,
		Customer:        customer,
		Notes:           strings.TrimSpace(d.Notes),
		Currency:        currency,
		Items:           items,
		Total:           TotalOf(items),
		Status:          initial,
		PaymentProvider: d.Provider,
		PaymentStatus:   PaymentUnpaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func newItem(i int, l Line) (Item, error) {
	title := strings.TrimSpace(l.ProductTitle)
	if title == "" {
		return Item{}, &ValidationError{Field: itemField(i, "productTitle"), Reason: "is required"}
	}
	if l.Quantity < 1 {
		return Item{}, &ValidationError{Field: itemField(i, "quantity"), Reason: "must be at least 1"}
	}
	if l.UnitPrice.IsNegative() {
		return Item{}, &ValidationError{Field: itemField(i, "unitPrice"), Reason: "must not be negative"}
	}
	return Item{
		ID:           uuid.New().String(),
		ProductTitle: title,
		VersionTitle: strings.TrimSpace(l.VersionTitle),
		UnitPrice:    l.UnitPrice,
		Quantity:     l.Quantity,
		LineTotal:    LineTotal(l.UnitPrice, l.Quantity),
	}, nil
}

// LineTotal is unitPrice * quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// TotalOf sums the line totals of items.
func TotalOf(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// ParseCurrency accepts three-letter codes and upper-cases them.
func ParseCurrency(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		return "", &ValidationError{Field: "currency", Reason: "must be a three-letter code"}
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", &ValidationError{Field: "currency", Reason: "must be a three-letter code"}
		}
	}
	return code, nil
}

// EmailMatches compares a supplied address against the order's customer email,
// ignoring case and surrounding whitespace. The comparison is constant time.
func (o *Order) EmailMatches(email string) bool {
	stored := strings.ToLower(strings.TrimSpace(o.Customer.Email))
	supplied := strings.ToLower(strings.TrimSpace(email))
	if stored == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
