package relisting

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekrent/internal/domain/advertising"
	"weekrent/internal/domain/availability"
	"weekrent/internal/domain/properties"
	"weekrent/internal/domain/shared/daterange"
)

func jan(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func span(from, to int) daterange.DateRange {
	return daterange.DateRange{CheckIn: jan(from), CheckOut: jan(to)}
}

func engine() Engine {
	return NewEngine(advertising.NewLimiter(5, availability.DefaultStayPolicy))
}

func property(status properties.Status, window daterange.DateRange, ads ...daterange.DateRange) *properties.Property {
	return &properties.Property{ID: "p-1", Owner: "o-1", Title: "Loft", Window: window, Status: status, Advertisements: ads}
}

func TestDecide_MergesIntoAdjacentAdvertisement(t *testing.T) {
	p := property(properties.StatusActive, span(1, 29), span(1, 8))

	d, err := engine().Decide(Input{
		Property:    p,
		Cancelled:   span(8, 15),
		Remaining:   []daterange.DateRange{span(15, 29)},
		ActiveCount: 4,
		WasEligible: true,
	})

	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: KindMerged, PropertyID: "p-1", Tab: TabActive}, d.Outcome)
	assert.Equal(t, []daterange.DateRange{span(1, 15)}, d.Mutation.Advertisements)

	require.NoError(t, d.Apply(p, jan(2)))
	assert.Equal(t, properties.StatusActive, p.Status)
	assert.Equal(t, []daterange.DateRange{span(1, 15)}, p.Advertisements)
}

func TestDecide_MergeIgnoresQuotaForCountedProperty(t *testing.T) {
	p := property(properties.StatusActive, span(1, 29), span(1, 8))

	d, err := engine().Decide(Input{Property: p, Cancelled: span(8, 15), Remaining: []daterange.DateRange{span(15, 29)}, ActiveCount: 5, WasEligible: true})

	require.NoError(t, err)
	assert.Equal(t, KindMerged, d.Outcome.Kind)
}

func TestDecide_LimitExceeded(t *testing.T) {
	p := property(properties.StatusRented, span(1, 29))

	d, err := engine().Decide(Input{
		Property:    p,
		Cancelled:   span(8, 15),
		Remaining:   []daterange.DateRange{span(1, 8), span(15, 29)},
		ActiveCount: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: KindLimitExceeded, PropertyID: "p-1", Tab: TabExpired}, d.Outcome)
	assert.Equal(t, properties.StatusExpired, d.Mutation.Status)

	require.NoError(t, d.Apply(p, jan(2)))
	assert.Equal(t, properties.StatusExpired, p.Status)
	assert.Equal(t, "limit_exceeded", p.StatusReason)
}

func TestDecide_ShortTermRegardlessOfQuota(t *testing.T) {
	for _, count := range []int{0, 5} {
		t.Run(fmt.Sprintf("active count %d", count), func(t *testing.T) {
			p := property(properties.StatusRented, span(1, 29))

			d, err := engine().Decide(Input{
				Property:    p,
				Cancelled:   span(8, 15),
				Remaining:   []daterange.DateRange{span(1, 8), span(12, 29)},
				ActiveCount: count,
			})

			require.NoError(t, err)
			assert.Equal(t, KindShortTerm, d.Outcome.Kind)
			assert.Equal(t, TabExpired, d.Outcome.Tab)
			assert.Equal(t, []daterange.DateRange{span(8, 12)}, d.Freed)
			require.NoError(t, d.Apply(p, jan(2)))
			assert.Equal(t, properties.StatusExpired, p.Status)
		})
	}
}

func TestDecide_RelistsWhenUnderCap(t *testing.T) {
	p := property(properties.StatusExpired, span(1, 29), span(1, 8))

	d, err := engine().Decide(Input{
		Property:    p,
		Cancelled:   span(8, 22),
		Remaining:   []daterange.DateRange{span(1, 8), span(22, 29)},
		ActiveCount: 4,
	})

	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: KindRelisted, PropertyID: "p-1", Tab: TabActive}, d.Outcome)
	assert.Equal(t, []daterange.DateRange{span(8, 22)}, d.Mutation.Advertisements)

	require.NoError(t, d.Apply(p, jan(2)))
	assert.Equal(t, properties.StatusActive, p.Status)
	assert.Equal(t, []daterange.DateRange{span(8, 22)}, p.Advertisements)
	assert.Empty(t, p.StatusReason)
}

func TestDecide_ExpiredPropertyNeverMerges(t *testing.T) {
	p := property(properties.StatusExpired, span(1, 29), span(1, 8))

	d, err := engine().Decide(Input{Property: p, Cancelled: span(8, 15), Remaining: []daterange.DateRange{span(15, 29)}, ActiveCount: 5})

	require.NoError(t, err)
	assert.Equal(t, KindLimitExceeded, d.Outcome.Kind)
}

func TestDecide_MergeThatWouldBreachCapFallsThrough(t *testing.T) {
	p := property(properties.StatusActive, span(1, 29), span(1, 4))

	d, err := engine().Decide(Input{
		Property:    p,
		Cancelled:   span(4, 11),
		Remaining:   []daterange.DateRange{span(11, 29)},
		ActiveCount: 5,
		WasEligible: false,
	})

	require.NoError(t, err)
	assert.Equal(t, KindLimitExceeded, d.Outcome.Kind)
}

func TestDecide_Errors(t *testing.T) {
	_, err := engine().Decide(Input{Property: property(properties.StatusActive, daterange.DateRange{}), Cancelled: span(1, 8)})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = engine().Decide(Input{Property: property(properties.StatusDeleted, span(1, 29)), Cancelled: span(1, 8)})
	assert.ErrorIs(t, err, properties.ErrInvalidState)

	_, err = engine().Decide(Input{Cancelled: span(1, 8)})
	assert.ErrorIs(t, err, properties.ErrPropertyNotFound)

	_, err = engine().Decide(Input{Property: property(properties.StatusActive, span(1, 29)), Cancelled: span(8, 8)})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestDecision_ApplyRejectsOtherProperty(t *testing.T) {
	d := Decision{Outcome: Outcome{Kind: KindShortTerm, PropertyID: "p-2"}}
	assert.Error(t, d.Apply(property(properties.StatusActive, span(1, 29)), jan(1)))
}

// advertisedNights is the open time covered by the advertisement of an active property.
func advertisedNights(p *properties.Property, segments []daterange.DateRange) int {
	if p.Status != properties.StatusActive {
		return 0
	}
	var covered []daterange.DateRange
	for _, seg := range segments {
		for _, ad := range p.Advertisements {
			if c, ok := seg.Clip(ad); ok {
				covered = append(covered, c)
			}
		}
	}
	return daterange.TotalNights(covered)
}

type ownerState struct {
	props   []*properties.Property
	booked  map[properties.PropertyID][]daterange.DateRange
	limiter advertising.Limiter
}

func (s ownerState) candidates() []advertising.Candidate {
	out := make([]advertising.Candidate, 0, len(s.props))
	for _, p := range s.props {
		out = append(out, advertising.Candidate{Property: p, Segments: availability.Segments(p.Window, s.booked[p.ID])})
	}
	return out
}

func randomOwner(rng *rand.Rand, limiter advertising.Limiter) ownerState {
	statuses := []properties.Status{properties.StatusActive, properties.StatusActive, properties.StatusRented, properties.StatusExpired}
	s := ownerState{booked: map[properties.PropertyID][]daterange.DateRange{}, limiter: limiter}
	for i := 0; i < 3+rng.Intn(6); i++ {
		window := span(1, 1+7*(1+rng.Intn(8)))
		p := &properties.Property{
			ID:     properties.PropertyID(fmt.Sprintf("p-%d", i)),
			Owner:  "o-1",
			Title:  "Unit",
			Window: window,
			Status: statuses[rng.Intn(len(statuses))],
		}
		if rng.Intn(2) == 0 {
			p.Advertisements = []daterange.DateRange{window}
		} else {
			from := rng.Intn(window.Nights())
			p.Advertisements = []daterange.DateRange{{CheckIn: daterange.AddDays(window.CheckIn, from), CheckOut: window.CheckOut}}
		}
		cursor := window.CheckIn
		for cursor.Before(window.CheckOut) {
			length := 1 + rng.Intn(14)
			end := daterange.AddDays(cursor, length)
			if end.After(window.CheckOut) {
				end = window.CheckOut
			}
			if rng.Intn(3) > 0 {
				s.booked[p.ID] = append(s.booked[p.ID], daterange.DateRange{CheckIn: cursor, CheckOut: end})
			}
			cursor = daterange.AddDays(end, rng.Intn(4))
		}
		s.props = append(s.props, p)
	}
	return s
}

func TestDecide_QuotaAndConservationHoldOnRandomOwners(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	limiter := advertising.NewLimiter(5, availability.DefaultStayPolicy)
	eng := NewEngine(limiter)

	checked := 0
	for i := 0; i < 2000; i++ {
		s := randomOwner(rng, limiter)
		if limiter.ActiveCount(s.candidates(), "") > limiter.Limit() {
			continue
		}
		p := s.props[rng.Intn(len(s.props))]
		booked := s.booked[p.ID]
		if len(booked) == 0 {
			continue
		}
		idx := rng.Intn(len(booked))
		cancelled := booked[idx]
		remaining := append(append([]daterange.DateRange(nil), booked[:idx]...), booked[idx+1:]...)

		segmentsBefore := availability.Segments(p.Window, booked)
		before := advertisedNights(p, segmentsBefore)
		in := Input{
			Property:    p,
			Cancelled:   cancelled,
			Remaining:   remaining,
			ActiveCount: limiter.ActiveCount(s.candidates(), p.ID),
			WasEligible: limiter.IsActiveEligible(p, segmentsBefore),
		}

		d, err := eng.Decide(in)
		require.NoError(t, err)
		require.NoError(t, d.Apply(p, jan(1)))
		s.booked[p.ID] = remaining

		assert.LessOrEqual(t, limiter.ActiveCount(s.candidates(), ""), limiter.Limit(), "owner over cap after %s", d.Outcome.Kind)
		assert.Equal(t, d.Mutation.Status, p.Status)
		assert.Equal(t, d.Mutation.Advertisements, p.Advertisements)

		if d.Outcome.Kind == KindMerged || d.Outcome.Kind == KindRelisted {
			after := advertisedNights(p, availability.Segments(p.Window, remaining))
			var gained []daterange.DateRange
			for _, piece := range d.Freed {
				for _, ad := range p.Advertisements {
					if c, ok := piece.Clip(ad); ok {
						gained = append(gained, c)
					}
				}
			}
			assert.Greater(t, after, before)
			assert.Equal(t, daterange.TotalNights(gained), after-before)
		}
		checked++
	}
	assert.Greater(t, checked, 500)
}

func TestDecide_PastFreedDaysDoNotCountTowardsRelisting(t *testing.T) {
	p := property(properties.StatusActive, span(1, 29), span(1, 29))

	d, err := engine().Decide(Input{
		Property:    p,
		Cancelled:   span(1, 15),
		Remaining:   []daterange.DateRange{span(15, 29)},
		ActiveCount: 0,
		WasEligible: false,
		Today:       jan(10),
	})

	require.NoError(t, err)
	assert.Equal(t, Outcome{Kind: KindShortTerm, PropertyID: "p-1", Tab: TabExpired}, d.Outcome)
	assert.Equal(t, []daterange.DateRange{span(1, 15)}, d.Freed)

	require.NoError(t, d.Apply(p, jan(10)))
	assert.Equal(t, properties.StatusExpired, p.Status)

	segments := availability.Upcoming(availability.Segments(p.Window, []daterange.DateRange{span(15, 29)}), jan(10))
	assert.False(t, engine().Limiter.IsActiveEligible(p, segments))
}

func TestDecide_RelistAdoptsOnlyUpcomingDays(t *testing.T) {
	p := property(properties.StatusExpired, span(1, 29))

	d, err := engine().Decide(Input{
		Property:  p,
		Cancelled: span(1, 22),
		Remaining: []daterange.DateRange{span(22, 29)},
		Today:     jan(10),
	})

	require.NoError(t, err)
	assert.Equal(t, KindRelisted, d.Outcome.Kind)
	assert.Equal(t, []daterange.DateRange{span(10, 22)}, d.Adopted)
	assert.Equal(t, []daterange.DateRange{span(1, 22)}, d.Freed)
}
