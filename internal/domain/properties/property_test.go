package properties

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

func TestNewProperty(t *testing.T) {
	p, err := NewProperty(CreateParams{ID: "p-1", Owner: "o-1", Title: " Loft ", WindowStart: jan(1).Add(10 * time.Hour), WindowEnd: jan(29), Now: jan(1)})
	require.NoError(t, err)
	assert.Equal(t, "Loft", p.Title)
	assert.Equal(t, span(1, 29), p.Window)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, []daterange.DateRange{span(1, 29)}, p.Advertisements)
	require.Len(t, p.PendingEvents(), 1)

	open, err := NewProperty(CreateParams{ID: "p-2", Owner: "o-1", Title: "Open", Now: jan(1)})
	require.NoError(t, err)
	assert.False(t, open.HasWindow())
	assert.Empty(t, open.Advertisements)

	_, err = NewProperty(CreateParams{ID: "p-3", Owner: "o-1", Title: "Bad", WindowStart: jan(10), WindowEnd: jan(2)})
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = NewProperty(CreateParams{ID: "p-3", Owner: "o-1", Title: "Half", WindowStart: jan(10)})
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = NewProperty(CreateParams{ID: "p-3", Owner: "o-1"})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestProperty_Transitions(t *testing.T) {
	p, err := NewProperty(CreateParams{ID: "p-1", Owner: "o-1", Title: "Loft", WindowStart: jan(1), WindowEnd: jan(29), Now: jan(1)})
	require.NoError(t, err)
	p.ClearEvents()

	require.NoError(t, p.MarkRented(jan(2)))
	assert.ErrorIs(t, p.MarkRented(jan(2)), ErrInvalidState)
	assert.ErrorIs(t, p.ExtendAdvertisement([]daterange.DateRange{span(1, 8)}, jan(2)), ErrInvalidState)

	require.NoError(t, p.Expire("short_term", jan(3)))
	assert.Equal(t, "short_term", p.StatusReason)

	require.NoError(t, p.Reactivate(jan(4)))
	assert.Equal(t, StatusActive, p.Status)
	assert.Empty(t, p.StatusReason)
	assert.ErrorIs(t, p.Reactivate(jan(4)), ErrInvalidState)

	require.NoError(t, p.SoftDelete(jan(5)))
	assert.ErrorIs(t, p.SoftDelete(jan(5)), ErrInvalidState)
	assert.ErrorIs(t, p.Relist([]daterange.DateRange{span(1, 8)}, jan(6)), ErrInvalidState)
	assert.ErrorIs(t, p.Expire("limit_exceeded", jan(6)), ErrInvalidState)

	names := make([]string, 0)
	for _, e := range p.PendingEvents() {
		names = append(names, e.EventName())
	}
	assert.Equal(t, []string{"property.rented", "property.expired", "property.reactivated", "property.deleted"}, names)
}

func TestProperty_RelistReplacesStaleAdvertisements(t *testing.T) {
	p := &Property{ID: "p-1", Owner: "o-1", Window: span(1, 29), Status: StatusExpired, Advertisements: []daterange.DateRange{span(1, 8)}}
	require.NoError(t, p.Relist([]daterange.DateRange{span(15, 22)}, jan(2)))
	assert.Equal(t, []daterange.DateRange{span(15, 22)}, p.Advertisements)

	require.NoError(t, p.Relist([]daterange.DateRange{span(22, 29)}, jan(3)))
	assert.Equal(t, []daterange.DateRange{span(15, 29)}, p.Advertisements)
}

func TestProperty_CloneIsIndependent(t *testing.T) {
	p := &Property{ID: "p-1", Advertisements: []daterange.DateRange{span(1, 8)}}
	p.Record(PropertyRented{PropertyID: "p-1"})
	c := p.Clone()
	c.Advertisements[0] = span(2, 9)
	assert.Equal(t, span(1, 8), p.Advertisements[0])
	assert.Empty(t, c.PendingEvents())
}
