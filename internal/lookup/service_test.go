package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditationastro/medinow-sub000/internal/auth"
	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/store/mocks"
)

func seedOrder(t *testing.T, st *mocks.MockOrderStore, userID string) *order.Order {
	t.Helper()
	o, err := order.New(order.Draft{
		UserID:   userID,
		Customer: order.Customer{FullName: "Ada Lovelace", Email: "Ada@Example.com"},
		Currency: "USD",
		Provider: order.ProviderManual,
		Lines: []order.Line{
			{ProductTitle: "Birth chart reading", UnitPrice: decimal.RequireFromString("19.99"), Quantity: 1},
			{ProductTitle: "Candle", UnitPrice: decimal.RequireFromString("4.99"), Quantity: 2},
		},
	}, time.Now())
	require.NoError(t, err)
	st.SetData(o)
	return o
}

// ============================================
// Track Tests
// ============================================

func TestService_Track_CorrectCredentials(t *testing.T) {
	st := mocks.NewMockOrderStore()
	o := seedOrder(t, st, "")
	svc := NewService(st, zerolog.Nop())

	got, err := svc.Track(context.Background(), o.ID, "ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, "29.97", got.Total.StringFixed(2))
}

func TestService_Track_UnifiedNotFound(t *testing.T) {
	st := mocks.NewMockOrderStore()
	o := seedOrder(t, st, "")
	svc := NewService(st, zerolog.Nop())
	ctx := context.Background()

	_, wrongEmail := svc.Track(ctx, o.ID, "someoneelse@example.com")
	_, unknownID := svc.Track(ctx, "6f1c2a5e-8d1b-4f7a-9a43-2b8e3c1d0f11", "ada@example.com")
	_, blankEmail := svc.Track(ctx, o.ID, "  ")
	_, blankID := svc.Track(ctx, "", "ada@example.com")

	for _, err := range []error{wrongEmail, unknownID, blankEmail, blankID} {
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
		assert.Equal(t, order.ErrOrderNotFound.Error(), err.Error())
	}
}

func TestService_Track_StorageFailure(t *testing.T) {
	st := mocks.NewMockOrderStore()
	st.GetErr = errors.New("connection reset")
	svc := NewService(st, zerolog.Nop())

	_, err := svc.Track(context.Background(), "6f1c2a5e-8d1b-4f7a-9a43-2b8e3c1d0f11", "ada@example.com")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, order.ErrOrderNotFound)
}

// ============================================
// ForCaller Tests
// ============================================

func TestService_ForCaller(t *testing.T) {
	st := mocks.NewMockOrderStore()
	owned := seedOrder(t, st, "user-1")
	guest := seedOrder(t, st, "")
	svc := NewService(st, zerolog.Nop())
	ctx := context.Background()

	admin := &auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
	owner := &auth.Identity{UserID: "user-1", Role: auth.RoleUser}
	other := &auth.Identity{UserID: "user-2", Role: auth.RoleUser}

	got, err := svc.ForCaller(ctx, admin, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, guest.ID, got.ID)

	got, err = svc.ForCaller(ctx, owner, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, owned.ID, got.ID)

	_, err = svc.ForCaller(ctx, other, owned.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	_, err = svc.ForCaller(ctx, owner, guest.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	_, err = svc.ForCaller(ctx, nil, owned.ID)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}
