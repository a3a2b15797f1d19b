package mocks

import (
	"sync"

	"github.com/meditationastro/medinow-sub000/internal/email"
)

// SentMail records one Send call
type SentMail struct {
	Template email.Template
	To       string
	Data     email.OrderData
}

// MockMailer records sends and optionally fails them
type MockMailer struct {
	mu   sync.Mutex
	sent []SentMail

	// Err is returned from every Send after recording the attempt
	Err error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(tpl email.Template, to string, data email.OrderData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMail{Template: tpl, To: to, Data: data})
	return m.Err
}

// Sent returns a copy of every recorded send
func (m *MockMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// Count returns how many sends used tpl
func (m *MockMailer) Count(tpl email.Template) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.Template == tpl {
			n++
		}
	}
	return n
}
