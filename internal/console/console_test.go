package console

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
	"github.com/meditationastro/medinow-sub000/internal/email"
	emailmocks "github.com/meditationastro/medinow-sub000/internal/email/mocks"
	"github.com/meditationastro/medinow-sub000/internal/events"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/store/mocks"
	"github.com/meditationastro/medinow-sub000/internal/notification"
)

var (
	admin    = &auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
	customer = &auth.Identity{UserID: "user-1", Role: auth.RoleUser}
	baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newTestConsole() (*Console, *mocks.MockOrderStore, *emailmocks.MockMailer) {
	st := mocks.NewMockOrderStore()
	mailer := emailmocks.NewMockMailer()
	c := New(
		st,
		notification.NewDispatcher(mailer, "owner@example.com", zerolog.Nop()),
		events.NewEmitter(nil, zerolog.Nop(), nil),
		nil,
		zerolog.Nop(),
	)
	c.now = func() time.Time { return baseTime.Add(time.Hour) }
	return c, st, mailer
}

func seed(t *testing.T, st *mocks.MockOrderStore, name, email string, provider order.PaymentProvider, total string, created time.Time) *order.Order {
	t.Helper()
	o, err := order.New(order.Draft{
		Customer: order.Customer{FullName: name, Email: email},
		Currency: "USD",
		Provider: provider,
		Lines:    []order.Line{{ProductTitle: "Reading", UnitPrice: decimal.RequireFromString(total), Quantity: 1}},
	}, created)
	require.NoError(t, err)
	require.NoError(t, st.Create(context.Background(), o))
	return o
}

// ============================================
// Authorization Tests
// ============================================

func TestConsole_RequiresAdmin(t *testing.T) {
	c, st, _ := newTestConsole()
	o := seed(t, st, "Ada", "ada@example.com", order.ProviderManual, "10", baseTime)
	ctx := context.Background()

	for _, tc := range []struct {
		caller *auth.Identity
		want   error
	}{
		{nil, auth.ErrUnauthenticated},
		{customer, auth.ErrForbidden},
	} {
		_, err := c.List(ctx, tc.caller, ListQuery{})
		assert.ErrorIs(t, err, tc.want)
		_, err = c.Stats(ctx, tc.caller)
		assert.ErrorIs(t, err, tc.want)
		_, err = c.Get(ctx, tc.caller, o.ID)
		assert.ErrorIs(t, err, tc.want)
		_, err = c.UpdateStatus(ctx, tc.caller, o.ID, "CONFIRMED")
		assert.ErrorIs(t, err, tc.want)
		assert.ErrorIs(t, c.Delete(ctx, tc.caller, o.ID, true), tc.want)
	}

	assert.Zero(t, st.UpdateCalls)
	assert.Empty(t, st.DeleteCalls)
}

// ============================================
// List & Stats Tests
// ============================================

func TestConsole_List_FilterSearchAndPaging(t *testing.T) {
	c, st, _ := newTestConsole()
	ada := seed(t, st, "Ada Lovelace", "ada@example.com", order.ProviderManual, "10", baseTime)
	grace := seed(t, st, "Grace Hopper", "grace@navy.mil", order.ProviderOnline, "20", baseTime.Add(time.Minute))
	seed(t, st, "Alan Turing", "alan@example.com", order.ProviderManual, "30", baseTime.Add(2*time.Minute))
	ctx := context.Background()

	all, err := c.List(ctx, admin, ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alan Turing", all[0].Customer.FullName)

	pending, err := c.List(ctx, admin, ListQuery{Status: "pending_payment"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, grace.ID, pending[0].ID)

	byEmail, err := c.List(ctx, admin, ListQuery{Search: "NAVY"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, grace.ID, byEmail[0].ID)

	byID, err := c.List(ctx, admin, ListQuery{Search: ada.ID[:8]})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, ada.ID, byID[0].ID)

	page, err := c.List(ctx, admin, ListQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, grace.ID, page[0].ID)
}

func TestConsole_List_RejectsBadFilter(t *testing.T) {
	c, _, _ := newTestConsole()

	_, err := c.List(context.Background(), admin, ListQuery{Status: "REFUNDED"})
	assert.True(t, order.IsValidation(err))

	_, err = c.List(context.Background(), admin, ListQuery{Offset: -1})
	assert.True(t, order.IsValidation(err))
}

func TestNormalize_Limits(t *testing.T) {
	f, err := normalize(ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, f.Limit)

	f, err = normalize(ListQuery{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, f.Limit)
}

func TestConsole_Stats(t *testing.T) {
	c, st, _ := newTestConsole()
	ctx := context.Background()
	seed(t, st, "A", "a@example.com", order.ProviderManual, "10.50", baseTime)
	seed(t, st, "B", "b@example.com", order.ProviderOnline, "20", baseTime)
	confirmed := seed(t, st, "C", "c@example.com", order.ProviderManual, "30.25", baseTime)
	completed := seed(t, st, "D", "d@example.com", order.ProviderManual, "40", baseTime)
	cancelled := seed(t, st, "E", "e@example.com", order.ProviderManual, "99", baseTime)

	_, err := c.UpdateStatus(ctx, admin, confirmed.ID, "CONFIRMED")
	require.NoError(t, err)
	_, err = c.UpdateStatus(ctx, admin, completed.ID, "COMPLETED")
	require.NoError(t, err)
	_, err = c.UpdateStatus(ctx, admin, cancelled.ID, "CANCELLED")
	require.NoError(t, err)

	stats, err := c.Stats(ctx, admin)

	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalOrders)
	assert.Equal(t, "70.25", stats.Revenue.StringFixed(2))
	assert.Equal(t, 2, stats.PendingOrders)
	assert.Equal(t, 1, stats.CompletedOrders)
}

// ============================================
// Update Status Tests
// ============================================

func TestConsole_UpdateStatus_PendingToConfirmed(t *testing.T) {
	c, st, mailer := newTestConsole()
	o := seed(t, st, "Ada", "ada@example.com", order.ProviderManual, "29.97", baseTime)

	updated, err := c.UpdateStatus(context.Background(), admin, o.ID, "CONFIRMED")

	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, updated.Status)
	assert.True(t, updated.UpdatedAt.After(o.UpdatedAt))
	assert.Equal(t, o.Items, updated.Items)
	assert.Equal(t, order.PaymentUnpaid, updated.PaymentStatus)
	assert.Equal(t, 1, mailer.Count(email.TemplateOwnerStatus))

	detail, err := c.Get(context.Background(), admin, o.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 2)
	last := detail.History[1]
	assert.Equal(t, order.StatusPending, last.From)
	assert.Equal(t, order.StatusConfirmed, last.To)
	assert.Equal(t, "admin-1", last.Actor)
	assert.Equal(t, order.SourceAdmin, last.Source)
}

func TestConsole_UpdateStatus_OverrideOutsideProgression(t *testing.T) {
	c, st, _ := newTestConsole()
	o := seed(t, st, "Ada", "ada@example.com", order.ProviderManual, "10", baseTime)
	ctx := context.Background()

	_, err := c.UpdateStatus(ctx, admin, o.ID, "CANCELLED")
	require.NoError(t, err)
	reopened, err := c.UpdateStatus(ctx, admin, o.ID, "pending")

	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, reopened.Status)
}

func TestConsole_UpdateStatus_SameStatusIsNoop(t *testing.T) {
	c, st, mailer := newTestConsole()
	o := seed(t, st, "Ada", "ada@example.com", order.ProviderManual, "10", baseTime)

	updated, err := c.UpdateStatus(context.Background(), admin, o.ID, "PENDING")

	require.NoError(t, err)
	assert.Equal(t, o.UpdatedAt, updated.UpdatedAt)
	assert.Empty(t, mailer.Sent())
	history, _ := st.History(context.Background(), o.ID)
	assert.Len(t, history, 1)
}

func TestConsole_UpdateStatus_Errors(t *testing.T) {
	c, st, _ := newTestConsole()
	o := seed(t, st, "Ada", "ada@example.com", order.ProviderManual, "10", baseTime)

	_, err := c.UpdateStatus(context.Background(), admin, o.ID, "REFUNDED")
	var ve *order.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "status", ve.Field)
	assert.Zero(t, st.UpdateCalls)

	_, err = c.UpdateStatus(context.Background(), admin, "missing", "CONFIRMED")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestConsole_UpdateStatus_NotificationFailureKeepsChange(t *testing.T) {
	c, st, mailer := newTestConsole()
	mailer.Err = errors.New("smtp down")
	o := seed(t, st, "Ada", "ada@example.com", order.ProviderManual, "10", baseTime)

	updated, err := c.UpdateStatus(context.Background(), admin, o.ID, "SHIPPED")

	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, updated.Status)
	stored, _ := st.Get(context.Background(), o.ID)
	assert.Equal(t, order.StatusShipped, stored.Status)
}

// ============================================
// Delete Tests
// ============================================

func TestConsole_Delete(t *testing.T) {
	c, st, _ := newTestConsole()
	o := seed(t, st, "Ada", "ada@example.com", order.ProviderManual, "10", baseTime)
	ctx := context.Background()

	err := c.Delete(ctx, admin, o.ID, false)
	var ve *order.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "confirm", ve.Field)
	assert.Equal(t, 1, st.Len())

	require.NoError(t, c.Delete(ctx, admin, o.ID, true))

	assert.Zero(t, st.Len())
	assert.Zero(t, st.ItemCount(o.ID))
	_, err = c.Get(ctx, admin, o.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.ErrorIs(t, c.Delete(ctx, admin, o.ID, true), order.ErrOrderNotFound)
}
