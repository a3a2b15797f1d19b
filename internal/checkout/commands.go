package checkout

import "github.com/shopspring/decimal"

// PlaceOrder is a checkout submission.
type PlaceOrder struct {
	Customer        CustomerInput `json:"customer"`
	Notes           string        `json:"notes"`
	Currency        string        `json:"currency"`
	Items           []ItemInput   `json:"items"`
	PaymentProvider string        `json:"paymentProvider"`

	// Set by the transport from the caller's identity, never from the body.
	UserID      string `json:"-"`
	TrustPrices bool   `json:"-"`
}

type CustomerInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// ItemInput is either a catalog reference (ProductID, optional VersionID) or,
// for trusted callers only, a pre-priced line.
type ItemInput struct {
	ProductID    string           `json:"productId"`
	VersionID    string           `json:"versionId"`
	ProductTitle string           `json:"productTitle"`
	VersionTitle string           `json:"versionTitle"`
	UnitPrice    *decimal.Decimal `json:"unitPrice"`
	Quantity     int              `json:"quantity"`
}

// RetryPayment reopens a hosted checkout for an unpaid online order.
type RetryPayment struct {
	OrderID string `json:"-"`
	Email   string `json:"email"`
}
