package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekrent/internal/domain/shared/daterange"
)

func jan(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func span(from, to int) daterange.DateRange {
	return daterange.DateRange{CheckIn: jan(from), CheckOut: jan(to)}
}

func newBooking(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(CreateParams{ID: "b-1", PropertyID: "p-1", GuestID: "g-1", Range: span(8, 15), Window: span(1, 29), CreatedAt: jan(1)})
	require.NoError(t, err)
	return b
}

func TestNewBooking_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params CreateParams
		err    error
	}{
		{name: "one week", params: CreateParams{ID: "b", PropertyID: "p", GuestID: "g", Range: span(1, 8), Window: span(1, 29)}},
		{name: "four weeks", params: CreateParams{ID: "b", PropertyID: "p", GuestID: "g", Range: span(1, 29), Window: span(1, 29)}},
		{name: "ten days", params: CreateParams{ID: "b", PropertyID: "p", GuestID: "g", Range: span(1, 11), Window: span(1, 29)}, err: ErrStayGranularity},
		{name: "reversed", params: CreateParams{ID: "b", PropertyID: "p", GuestID: "g", Range: span(8, 1), Window: span(1, 29)}, err: daterange.ErrInvalidRange},
		{name: "past window end", params: CreateParams{ID: "b", PropertyID: "p", GuestID: "g", Range: span(22, 29), Window: span(1, 28)}, err: ErrOutsideWindow},
		{name: "no window", params: CreateParams{ID: "b", PropertyID: "p", GuestID: "g", Range: span(1, 8)}, err: ErrOutsideWindow},
		{name: "no guest", params: CreateParams{ID: "b", PropertyID: "p", Range: span(1, 8), Window: span(1, 29)}, err: ErrGuestRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBooking(tt.params)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusPending, b.Status)
			require.Len(t, b.PendingEvents(), 1)
			assert.Equal(t, "booking.requested", b.PendingEvents()[0].EventName())
		})
	}
}

func TestBooking_Lifecycle(t *testing.T) {
	b := newBooking(t)
	require.NoError(t, b.Confirm(jan(2)))
	assert.ErrorIs(t, b.Confirm(jan(2)), ErrInvalidState)
	require.NoError(t, b.Complete(jan(15)))
	assert.Equal(t, StatusCompleted, b.Status)
	assert.ErrorIs(t, b.Cancel("late", jan(16)), ErrInvalidState)
	assert.False(t, b.IsBlocking())
}

func TestBooking_CancelTwiceFails(t *testing.T) {
	b := newBooking(t)
	require.NoError(t, b.Cancel(" guest changed plans ", jan(3)))
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Equal(t, "guest changed plans", b.CancelReason)

	assert.ErrorIs(t, b.Cancel("again", jan(4)), ErrInvalidState)
	assert.ErrorIs(t, b.Confirm(jan(4)), ErrInvalidState)
}

func TestBlockingRanges(t *testing.T) {
	a := newBooking(t)
	c := &Booking{ID: "b-2", Range: span(15, 22), Status: StatusConfirmed}
	d := &Booking{ID: "b-3", Range: span(22, 29), Status: StatusCancelled}
	e := &Booking{ID: "b-4", Range: span(1, 8), Status: StatusCompleted}

	assert.Equal(t, []daterange.DateRange{span(8, 15), span(15, 22)}, BlockingRanges([]*Booking{a, c, d, e}, ""))
	assert.Equal(t, []daterange.DateRange{span(15, 22)}, BlockingRanges([]*Booking{a, c, d, e}, "b-1"))
}
