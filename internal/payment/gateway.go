package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OpCreateSession = "create_session"
	OpSessionStatus = "session_status"
)

// GatewayError wraps any failure talking to the payment provider.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// SessionRequest describes the hosted checkout to open for one order.
type SessionRequest struct {
	OrderID    string
	Email      string
	Currency   string
	Amount     decimal.Decimal
	SuccessURL string
	CancelURL  string
}

// Session is a gateway-issued, short-lived checkout reference.
type Session struct {
	ID  string
	URL string
}

// SessionState is what the gateway reports for an existing session.
type SessionState struct {
	ID      string
	OrderID string
	Paid    bool
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	SessionStatus(ctx context.Context, sessionID string) (*SessionState, error)
}

// HTTPGateway talks JSON to a hosted-checkout provider.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPGateway{baseURL: baseURL, apiKey: apiKey, client: client}
}

type createSessionBody struct {
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	Currency          string `json:"currency"`
	Amount            string `json:"amount"`
	SuccessURL        string `json:"success_url"`
	CancelURL         string `json:"cancel_url"`
}

type sessionBody struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	ClientReferenceID string `json:"client_reference_id"`
	PaymentStatus     string `json:"payment_status"`
}

func (g *HTTPGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	payload, err := json.Marshal(createSessionBody{
		ClientReferenceID: req.OrderID,
		CustomerEmail:     req.Email,
		Currency:          req.Currency,
		Amount:            req.Amount.StringFixed(2),
		SuccessURL:        req.SuccessURL,
		CancelURL:         req.CancelURL,
	})
	if err != nil {
		return nil, &GatewayError{Op: OpCreateSession, Err: err}
	}

	var body sessionBody
	if err := g.do(ctx, http.MethodPost, "/v1/checkout/sessions", payload, &body); err != nil {
		return nil, &GatewayError{Op: OpCreateSession, Err: err}
	}
	if body.ID == "" || body.URL == "" {
		return nil, &GatewayError{Op: OpCreateSession, Err: fmt.Errorf("response is missing session id or url")}
	}
	return &Session{ID: body.ID, URL: body.URL}, nil
}

func (g *HTTPGateway) SessionStatus(ctx context.Context, sessionID string) (*SessionState, error) {
	var body sessionBody
	if err := g.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &body); err != nil {
		return nil, &GatewayError{Op: OpSessionStatus, Err: err}
	}
	return &SessionState{
		ID:      body.ID,
		OrderID: body.ClientReferenceID,
		Paid:    body.PaymentStatus == "paid",
	}, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
