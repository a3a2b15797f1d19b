package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

type Template string

const (
	TemplateOrderReceived    Template = "order_received"
	TemplateOwnerNewOrder    Template = "owner_new_order"
	TemplateOwnerStatus      Template = "owner_status_changed"
	TemplatePaymentConfirmed Template = "payment_confirmed"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// OrderData is everything a template may render.
type OrderData struct {
	OrderID         string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Notes           string
	Currency        string
	Total           decimal.Decimal
	Items           []OrderItem
	PaymentProvider string
	Status          string
	PreviousStatus  string
}

// Render returns the subject and HTML body for tpl.
func Render(tpl Template, d OrderData) (string, string, error) {
	short := shortID(d.OrderID)
	switch tpl {
	case TemplateOrderReceived:
		return fmt.Sprintf("We received your order #%s", short), buildOrderReceivedBody(d), nil
	case TemplateOwnerNewOrder:
		return fmt.Sprintf("New order #%s from %s", short, d.CustomerName), buildOwnerNewOrderBody(d), nil
	case TemplateOwnerStatus:
		return fmt.Sprintf("Order #%s is now %s", short, d.Status), buildOwnerStatusBody(d), nil
	case TemplatePaymentConfirmed:
		return fmt.Sprintf("Payment received for order #%s", short), buildPaymentConfirmedBody(d), nil
	}
	return "", "", fmt.Errorf("unknown email template %q", tpl)
}

func shortID(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}

func buildItemsTable(d OrderData) string {
	var itemsHTML strings.Builder
	for _, item := range d.Items {
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			html.EscapeString(item.Title),
			item.Quantity,
			formatAmount(item.UnitPrice, d.Currency),
			formatAmount(item.LineTotal, d.Currency),
		))
	}

	return fmt.Sprintf(`<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Item</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">%s</span>
		</div>`, itemsHTML.String(), formatAmount(d.Total, d.Currency))
}

func layout(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">%s</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		%s

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This email was sent automatically. Reply to it if you have any questions about your order.
		</p>
	</div>
</body>
</html>`, html.EscapeString(title), content)
}

func orderNumberBox(orderID string) string {
	return fmt.Sprintf(`<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>`, html.EscapeString(orderID))
}

func buildOrderReceivedBody(d OrderData) string {
	next := `<p>Your order is awaiting payment. We will contact you with manual payment instructions shortly.</p>`
	if d.PaymentProvider == "ONLINE" {
		next = `<p>You will receive another email as soon as your online payment is confirmed.</p>`
	}
	content := fmt.Sprintf(`<p style="margin-top: 0;">Hello %s, thank you for your order.</p>
		%s
		<h2 style="font-size: 18px; border-bottom: 2px solid #667eea; padding-bottom: 10px;">Order details</h2>
		%s
		%s
		<p>You can check your order at any time with the order number and this email address.</p>`,
		html.EscapeString(d.CustomerName), orderNumberBox(d.OrderID), buildItemsTable(d), next)
	return layout("Thank you for your order", content)
}

func buildOwnerNewOrderBody(d OrderData) string {
	content := fmt.Sprintf(`<p style="margin-top: 0;">A new order was placed.</p>
		%s
		<p><strong>Customer:</strong> %s &lt;%s&gt; %s</p>
		<p><strong>Payment:</strong> %s</p>
		<p><strong>Notes:</strong> %s</p>
		%s`,
		orderNumberBox(d.OrderID),
		html.EscapeString(d.CustomerName),
		html.EscapeString(d.CustomerEmail),
		html.EscapeString(d.CustomerPhone),
		html.EscapeString(d.PaymentProvider),
		html.EscapeString(d.Notes),
		buildItemsTable(d))
	return layout("New order", content)
}

func buildOwnerStatusBody(d OrderData) string {
	content := fmt.Sprintf(`<p style="margin-top: 0;">An order changed status.</p>
		%s
		<p><strong>Status:</strong> %s &rarr; %s</p>
		<p><strong>Customer:</strong> %s &lt;%s&gt;</p>
		<p><strong>Total:</strong> %s</p>`,
		orderNumberBox(d.OrderID),
		html.EscapeString(d.PreviousStatus),
		html.EscapeString(d.Status),
		html.EscapeString(d.CustomerName),
		html.EscapeString(d.CustomerEmail),
		formatAmount(d.Total, d.Currency))
	return layout("Order status changed", content)
}

func buildPaymentConfirmedBody(d OrderData) string {
	content := fmt.Sprintf(`<p style="margin-top: 0;">Hello %s, we received your payment.</p>
		%s
		%s
		<p>Your order is confirmed and we will let you know when it ships.</p>`,
		html.EscapeString(d.CustomerName), orderNumberBox(d.OrderID), buildItemsTable(d))
	return layout("Payment received", content)
}

// formatAmount renders an amount with two decimals, comma separators and the
// currency code, e.g. "1,234.50 USD".
func formatAmount(amount decimal.Decimal, currency string) string {
	str := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}
	whole, frac, _ := strings.Cut(str, ".")

	var result strings.Builder
	remainder := len(whole) % 3
	if remainder > 0 {
		result.WriteString(whole[:remainder])
	}
	for i := remainder; i < len(whole); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(whole[i : i+3])
	}

	out := sign + result.String() + "." + frac
	if currency != "" {
		out += " " + html.EscapeString(currency)
	}
	return out
}
