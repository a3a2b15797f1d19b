package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/store"
)

// MockOrderStore is an in-memory OrderStore for testing. Updates are
// serialized by a single mutex, which stands in for row locking.
type MockOrderStore struct {
	mu      sync.Mutex
	orders  map[string]*order.Order
	history map[string][]order.StatusChange

	// For tracking calls in tests
	CreateCalls int
	UpdateCalls int
	DeleteCalls []string

	// Injected failures
	CreateErr error
	GetErr    error
	UpdateErr error
	DeleteErr error
	ListErr   error
}

// NewMockOrderStore creates a new MockOrderStore
func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders:  make(map[string]*order.Order),
		history: make(map[string][]order.StatusChange),
	}
}

func (m *MockOrderStore) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.orders[o.ID] = clone(o)
	m.history[o.ID] = append(m.history[o.ID], order.StatusChange{
		ID:            uuid.New().String(),
		OrderID:       o.ID,
		To:            o.Status,
		PaymentStatus: o.PaymentStatus,
		Actor:         "guest",
		Source:        order.SourceSystem,
		ChangedAt:     o.CreatedAt,
	})
	return nil
}

func (m *MockOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return clone(o), nil
}

func (m *MockOrderStore) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	result := make([]order.Order, 0, len(m.orders))
	term := strings.ToLower(strings.TrimSpace(f.Search))
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(o.Customer.FullName), term) &&
			!strings.Contains(strings.ToLower(o.Customer.Email), term) &&
			!strings.Contains(strings.ToLower(o.ID), term) {
			continue
		}
		result = append(result, *clone(o))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return []order.Order{}, nil
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *MockOrderStore) Stats(ctx context.Context) (order.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := order.Stats{Revenue: decimal.Zero}
	for _, o := range m.orders {
		stats.TotalOrders++
		switch o.Status {
		case order.StatusConfirmed, order.StatusShipped:
			stats.Revenue = stats.Revenue.Add(o.Total)
		case order.StatusCompleted:
			stats.Revenue = stats.Revenue.Add(o.Total)
			stats.CompletedOrders++
		case order.StatusPending, order.StatusPendingPayment:
			stats.PendingOrders++
		}
	}
	return stats, nil
}

func (m *MockOrderStore) Update(ctx context.Context, id string, fn store.UpdateFunc) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls++
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	current, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}

	working := clone(current)
	change, err := fn(working)
	if err != nil {
		return nil, err
	}

	m.orders[id] = working
	if change != nil {
		change.OrderID = id
		if change.ID == "" {
			change.ID = uuid.New().String()
		}
		m.history[id] = append(m.history[id], *change)
	}
	return clone(working), nil
}

func (m *MockOrderStore) History(ctx context.Context, id string) ([]order.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return nil, order.ErrOrderNotFound
	}
	return append([]order.StatusChange(nil), m.history[id]...), nil
}

func (m *MockOrderStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.orders[id]; !ok {
		return order.ErrOrderNotFound
	}
	delete(m.orders, id)
	delete(m.history, id)
	return nil
}

// SetData stores an order directly for testing
func (m *MockOrderStore) SetData(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = clone(o)
}

// Len returns the number of stored orders
func (m *MockOrderStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// ItemCount returns how many item rows reference the given order id
func (m *MockOrderStore) ItemCount(orderID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		return len(o.Items)
	}
	return 0
}

func clone(o *order.Order) *order.Order {
	c := *o
	c.Items = append([]order.Item(nil), o.Items...)
	return &c
}
