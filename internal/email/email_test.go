package email

import (
	"net/smtp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData() OrderData {
	return OrderData{
		OrderID:         "6f1c2a5e-8d1b-4f7a-9a43-2b8e3c1d0f11",
		CustomerName:    "Ada <script>",
		CustomerEmail:   "ada@example.com",
		Currency:        "USD",
		Total:           decimal.RequireFromString("29.97"),
		PaymentProvider: "MANUAL",
		Status:          "CONFIRMED",
		PreviousStatus:  "PENDING",
		Items: []OrderItem{
			{Title: "Birth chart reading", Quantity: 1, UnitPrice: decimal.RequireFromString("19.99"), LineTotal: decimal.RequireFromString("19.99")},
			{Title: "Candle (Lavender)", Quantity: 2, UnitPrice: decimal.RequireFromString("4.99"), LineTotal: decimal.RequireFromString("9.98")},
		},
	}
}

func TestRender_OrderReceived(t *testing.T) {
	subject, body, err := Render(TemplateOrderReceived, testData())

	require.NoError(t, err)
	assert.Equal(t, "We received your order #6f1c2a5e", subject)
	assert.Contains(t, body, "Birth chart reading")
	assert.Contains(t, body, "29.97 USD")
	assert.Contains(t, body, "manual payment instructions")
	assert.Contains(t, body, "Ada &lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestRender_OwnerStatus(t *testing.T) {
	subject, body, err := Render(TemplateOwnerStatus, testData())

	require.NoError(t, err)
	assert.Equal(t, "Order #6f1c2a5e is now CONFIRMED", subject)
	assert.Contains(t, body, "PENDING &rarr; CONFIRMED")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, err := Render(Template("newsletter"), testData())
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00 USD"},
		{"29.97", "29.97 USD"},
		{"999.5", "999.50 USD"},
		{"1234.5", "1,234.50 USD"},
		{"1234567.891", "1,234,567.89 USD"},
		{"-1500", "-1,500.00 USD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAmount(decimal.RequireFromString(tt.in), "USD"), tt.in)
	}
}

// ============================================
// Service Tests
// ============================================

func TestService_Send(t *testing.T) {
	s := NewService("mail.local", "2525", "shop@example.com")
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := s.Send(TemplatePaymentConfirmed, "ada@example.com", testData())

	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Payment received for order #6f1c2a5e\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8")
}

func TestService_Send_NotConfigured(t *testing.T) {
	s := NewService("", "25", "shop@example.com")

	err := s.Send(TemplateOrderReceived, "ada@example.com", testData())

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestService_Send_RejectsHeaderInjection(t *testing.T) {
	s := NewService("mail.local", "25", "shop@example.com")
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	err := s.Send(TemplateOrderReceived, "ada@example.com\r\nBcc: all@example.com", testData())

	assert.Error(t, err)
}

func TestService_Send_StripsNewlinesFromSubject(t *testing.T) {
	s := NewService("mail.local", "25", "shop@example.com")
	var gotMsg string
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotMsg = string(msg)
		return nil
	}
	d := testData()
	d.CustomerName = "Eve\r\nBcc: all@example.com"

	require.NoError(t, s.Send(TemplateOwnerNewOrder, "owner@example.com", d))

	assert.Contains(t, gotMsg, "Subject: New order #6f1c2a5e from Eve  Bcc: all@example.com\r\n")
}
