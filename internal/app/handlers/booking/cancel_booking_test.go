package booking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekrent/internal/app/dto"
	"weekrent/internal/app/handlers/support"
	appoutbox "weekrent/internal/app/outbox"
	"weekrent/internal/app/uow"
	"weekrent/internal/domain/advertising"
	"weekrent/internal/domain/availability"
	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
	"weekrent/internal/domain/relisting"
	"weekrent/internal/domain/shared/daterange"
	"weekrent/internal/infra/storage/memory"
)

var today = time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)

func feb(d int) time.Time {
	return time.Date(2025, time.February, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store   *memory.Store
	handler *CancelBookingHandler
}

func newFixture(cap int) fixture {
	store := memory.NewStore()
	stay := availability.StayPolicy{StepDays: 7, MaxSteps: 4}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{
		store: store,
		handler: &CancelBookingHandler{
			UoWFactory: store.Factory(),
			Engine:     relisting.NewEngine(advertising.NewLimiter(cap, stay)),
			Inventory:  support.Inventory{Logger: logger},
			Outbox:     store.Outbox(),
			Encoder:    appoutbox.JSONEventEncoder{},
			Cache:      memory.NewSegmentCache(),
			Logger:     logger,
			Now:        func() time.Time { return today },
		},
	}
}

// seed stores a property over February with one booking per given range.
func (f fixture) seed(t *testing.T, id string, booked ...daterange.DateRange) []*domainbooking.Booking {
	t.Helper()
	ctx := context.Background()
	p, err := domainproperties.NewProperty(domainproperties.CreateParams{
		ID: domainproperties.PropertyID(id), Owner: "owner-1", Title: id,
		WindowStart: feb(1), WindowEnd: feb(1).AddDate(0, 0, 28), Now: today,
	})
	require.NoError(t, err)
	unit, err := f.store.Factory().Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Properties().Save(ctx, p))
	var out []*domainbooking.Booking
	for i, r := range booked {
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:         domainbooking.BookingID(id + "-b" + string(rune('1'+i))),
			PropertyID: p.ID,
			GuestID:    "guest-1",
			Range:      r,
			Window:     p.Window,
			CreatedAt:  today,
		})
		require.NoError(t, err)
		require.NoError(t, unit.Bookings().Save(ctx, b))
		out = append(out, b)
	}
	require.NoError(t, unit.Commit(ctx))
	return out
}

func (f fixture) property(t *testing.T, id string) *domainproperties.Property {
	t.Helper()
	unit, err := f.store.Factory().Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer func() { _ = unit.Rollback(context.Background()) }()
	p, err := unit.Properties().ByID(context.Background(), domainproperties.PropertyID(id))
	require.NoError(t, err)
	return p
}

func fullMonth() daterange.DateRange {
	return daterange.MustNew(feb(1), feb(1).AddDate(0, 0, 28))
}

func TestCancelBooking_MergesIntoAdvertisement(t *testing.T) {
	f := newFixture(5)
	bookings := f.seed(t, "p1", daterange.MustNew(feb(8), feb(15)))

	out, err := f.handler.Handle(context.Background(), CancelBookingCommand{BookingID: string(bookings[0].ID), RequestedBy: "guest-1"})
	require.NoError(t, err)
	assert.Equal(t, string(relisting.KindMerged), out.Outcome)
	assert.Equal(t, string(relisting.TabActive), out.Tab)
	assert.Equal(t, []dto.Range{dto.MapRange(fullMonth())}, out.Advertisements)

	p := f.property(t, "p1")
	assert.Equal(t, domainproperties.StatusActive, p.Status)
	assert.NotEmpty(t, f.store.Outbox().Pending())
}

func TestCancelBooking_LimitExceededWhenQuotaFull(t *testing.T) {
	f := newFixture(1)
	f.seed(t, "p1")
	bookings := f.seed(t, "p2", fullMonth())

	out, err := f.handler.Handle(context.Background(), CancelBookingCommand{BookingID: string(bookings[0].ID)})
	require.NoError(t, err)
	assert.Equal(t, string(relisting.KindLimitExceeded), out.Outcome)
	assert.Equal(t, string(relisting.TabExpired), out.Tab)
	assert.Equal(t, domainproperties.StatusExpired, f.property(t, "p2").Status)
}

func TestCancelBooking_RejectsStrangersAndRepeats(t *testing.T) {
	f := newFixture(5)
	bookings := f.seed(t, "p1", daterange.MustNew(feb(8), feb(15)))
	id := string(bookings[0].ID)

	_, err := f.handler.Handle(context.Background(), CancelBookingCommand{BookingID: id, RequestedBy: "someone-else"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = f.handler.Handle(context.Background(), CancelBookingCommand{BookingID: id, RequestedBy: "owner-1"})
	require.NoError(t, err)
	_, err = f.handler.Handle(context.Background(), CancelBookingCommand{BookingID: id, RequestedBy: "owner-1"})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidState)

	_, err = f.handler.Handle(context.Background(), CancelBookingCommand{BookingID: "missing"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

// Two fully booked properties of one owner are cancelled at once with room for
// one more active listing: exactly one may be relisted.
func TestCancelBooking_ConcurrentCancellationsRespectQuota(t *testing.T) {
	f := newFixture(1)
	first := f.seed(t, "p1", fullMonth())
	second := f.seed(t, "p2", fullMonth())

	var wg sync.WaitGroup
	outcomes := make([]string, 2)
	errs := make([]error, 2)
	for i, b := range []*domainbooking.Booking{first[0], second[0]} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			out, err := f.handler.Handle(context.Background(), CancelBookingCommand{BookingID: id})
			errs[i] = err
			if out != nil {
				outcomes[i] = out.Outcome
			}
		}(i, string(b.ID))
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.ElementsMatch(t, []string{string(relisting.KindRelisted), string(relisting.KindLimitExceeded)}, outcomes)

	active := 0
	for _, id := range []string{"p1", "p2"} {
		if f.property(t, id).Status == domainproperties.StatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}
