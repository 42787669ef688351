package properties

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handlersupport "weekrent/internal/app/handlers/support"
	appoutbox "weekrent/internal/app/outbox"
	"weekrent/internal/app/uow"
	"weekrent/internal/domain/advertising"
	"weekrent/internal/domain/availability"
	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
	"weekrent/internal/domain/shared/daterange"
	"weekrent/internal/infra/storage/memory"
)

var now = time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)

func feb(d int) time.Time {
	return time.Date(2025, time.February, d, 0, 0, 0, 0, time.UTC)
}

func newHandler(store *memory.Store) *OwnerCommandsHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &OwnerCommandsHandler{
		UoWFactory: store.Factory(),
		Inventory:  handlersupport.Inventory{Logger: logger},
		Limiter:    advertising.NewLimiter(5, availability.DefaultStayPolicy),
		Outbox:     store.Outbox(),
		Encoder:    appoutbox.JSONEventEncoder{},
		Cache:      memory.NewSegmentCache(),
		Logger:     logger,
		Now:        func() time.Time { return now },
	}
}

func createFebruary(h *OwnerCommandsHandler, title string) (string, error) {
	out, err := h.Create(context.Background(), CreatePropertyCommand{
		OwnerID: "owner-1", Title: title, WindowStart: feb(1), WindowEnd: feb(1).AddDate(0, 0, 28),
	})
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func fillQuota(t *testing.T, h *OwnerCommandsHandler) []string {
	t.Helper()
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		id, err := createFebruary(h, fmt.Sprintf("Flat %d", i+1))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func seedExpired(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	ctx := context.Background()
	p, err := domainproperties.NewProperty(domainproperties.CreateParams{
		ID: domainproperties.PropertyID(id), Owner: "owner-1", Title: id,
		WindowStart: feb(1), WindowEnd: feb(1).AddDate(0, 0, 28), Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, p.Expire("limit_exceeded", now))
	unit, err := store.Factory().Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Properties().Save(ctx, p))
	require.NoError(t, unit.Commit(ctx))
}

func TestCreate_RejectsEligiblePropertyAtCap(t *testing.T) {
	store := memory.NewStore()
	h := newHandler(store)
	fillQuota(t, h)

	_, err := createFebruary(h, "Flat 6")
	assert.ErrorIs(t, err, ErrActiveLimitReached)

	out, err := h.Create(context.Background(), CreatePropertyCommand{OwnerID: "owner-1", Title: "No dates yet"})
	require.NoError(t, err)
	assert.Equal(t, string(domainproperties.StatusActive), out.Status)

	out, err = h.Create(context.Background(), CreatePropertyCommand{OwnerID: "owner-2", Title: "Other owner", WindowStart: feb(1), WindowEnd: feb(15)})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
}

func TestReactivate_HonoursCap(t *testing.T) {
	store := memory.NewStore()
	h := newHandler(store)
	ids := fillQuota(t, h)
	seedExpired(t, store, "expired-1")

	_, err := h.Reactivate(context.Background(), ReactivatePropertyCommand{OwnerID: "owner-1", PropertyID: "expired-1"})
	assert.ErrorIs(t, err, ErrActiveLimitReached)

	_, err = h.Delete(context.Background(), DeletePropertyCommand{OwnerID: "owner-1", PropertyID: ids[0]})
	require.NoError(t, err)

	out, err := h.Reactivate(context.Background(), ReactivatePropertyCommand{OwnerID: "owner-1", PropertyID: "expired-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domainproperties.StatusActive), out.Status)
}

func TestReactivate_RequiresBookableSegment(t *testing.T) {
	store := memory.NewStore()
	h := newHandler(store)
	seedExpired(t, store, "expired-1")

	ctx := context.Background()
	unit, err := store.Factory().Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: "b1", PropertyID: "expired-1", GuestID: "guest-1",
		Range: daterange.MustNew(feb(1), feb(1).AddDate(0, 0, 28)), Window: daterange.MustNew(feb(1), feb(1).AddDate(0, 0, 28)), CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, unit.Bookings().Save(ctx, b))
	require.NoError(t, unit.Commit(ctx))

	_, err = h.Reactivate(ctx, ReactivatePropertyCommand{OwnerID: "owner-1", PropertyID: "expired-1"})
	assert.ErrorIs(t, err, availability.ErrMinimumStayUnavailable)

	_, err = h.Reactivate(ctx, ReactivatePropertyCommand{OwnerID: "owner-2", PropertyID: "expired-1"})
	assert.ErrorIs(t, err, domainproperties.ErrNotOwner)
}

func TestDelete_RejectsPropertyWithPendingBooking(t *testing.T) {
	store := memory.NewStore()
	h := newHandler(store)
	id, err := createFebruary(h, "Flat 1")
	require.NoError(t, err)

	ctx := context.Background()
	unit, err := store.Factory().Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: "b1", PropertyID: domainproperties.PropertyID(id), GuestID: "guest-1",
		Range: daterange.MustNew(feb(8), feb(15)), Window: daterange.MustNew(feb(1), feb(1).AddDate(0, 0, 28)), CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, unit.Bookings().Save(ctx, b))
	require.NoError(t, unit.Commit(ctx))

	_, err = h.Delete(ctx, DeletePropertyCommand{OwnerID: "owner-1", PropertyID: id})
	assert.ErrorIs(t, err, ErrHasActiveBookings)

	_, err = h.Delete(ctx, DeletePropertyCommand{OwnerID: "owner-1", PropertyID: id, Permanent: true})
	assert.ErrorIs(t, err, ErrHasActiveBookings)
}

func TestDelete_PermanentRemovesProperty(t *testing.T) {
	store := memory.NewStore()
	h := newHandler(store)
	id, err := createFebruary(h, "Flat 1")
	require.NoError(t, err)

	out, err := h.Delete(context.Background(), DeletePropertyCommand{OwnerID: "owner-1", PropertyID: id, Permanent: true})
	require.NoError(t, err)
	assert.Equal(t, string(domainproperties.StatusDeleted), out.Status)

	_, err = h.Delete(context.Background(), DeletePropertyCommand{OwnerID: "owner-1", PropertyID: id})
	assert.ErrorIs(t, err, domainproperties.ErrPropertyNotFound)
}
