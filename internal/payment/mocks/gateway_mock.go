package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/meditationastro/medinow-sub000/internal/payment"
)

// MockGateway is a scriptable payment.Gateway for testing
type MockGateway struct {
	mu sync.Mutex

	// For tracking calls in tests
	SessionRequests []payment.SessionRequest
	StatusCalls     []string

	// CreateErr makes CreateCheckoutSession fail with a GatewayError
	CreateErr error
	StatusErr error

	// Sessions maps a session id to the state SessionStatus reports
	Sessions map[string]payment.SessionState
}

// NewMockGateway creates a new MockGateway
func NewMockGateway() *MockGateway {
	return &MockGateway{Sessions: make(map[string]payment.SessionState)}
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SessionRequests = append(m.SessionRequests, req)
	if m.CreateErr != nil {
		return nil, &payment.GatewayError{Op: payment.OpCreateSession, Err: m.CreateErr}
	}
	id := fmt.Sprintf("cs_test_%d", len(m.SessionRequests))
	m.Sessions[id] = payment.SessionState{ID: id, OrderID: req.OrderID}
	return &payment.Session{ID: id, URL: "https://pay.example.com/c/" + id}, nil
}

func (m *MockGateway) SessionStatus(ctx context.Context, sessionID string) (*payment.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StatusCalls = append(m.StatusCalls, sessionID)
	if m.StatusErr != nil {
		return nil, &payment.GatewayError{Op: payment.OpSessionStatus, Err: m.StatusErr}
	}
	s, ok := m.Sessions[sessionID]
	if !ok {
		return nil, &payment.GatewayError{Op: payment.OpSessionStatus, Err: fmt.Errorf("no such session %q", sessionID)}
	}
	return &s, nil
}

// MarkPaid flags a session as paid for the next SessionStatus call
func (m *MockGateway) MarkPaid(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.Sessions[sessionID]
	s.ID = sessionID
	s.Paid = true
	m.Sessions[sessionID] = s
}

// CreateCount returns how many sessions were requested
func (m *MockGateway) CreateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SessionRequests)
}
