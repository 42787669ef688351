package relisting

import (
	"errors"
	"fmt"
	"time"

	"weekrent/internal/domain/advertising"
	"weekrent/internal/domain/availability"
	"weekrent/internal/domain/properties"
	"weekrent/internal/domain/shared/daterange"
)

var ErrNoWindow = fmt.Errorf("relisting: property has no advertised window: %w", daterange.ErrInvalidRange)

// Input is everything one cancellation decision reads. It must come from the same
// transaction that writes the result.
type Input struct {
	Property  *properties.Property
	Cancelled daterange.DateRange
	// Remaining holds booked ranges still in force, without the cancelled booking.
	Remaining []daterange.DateRange
	// ActiveCount counts the owner's other actively advertised properties.
	ActiveCount int
	// WasEligible tells whether the property itself counts as advertised before the cancellation.
	WasEligible bool
	// Today, when set, drops past days from the eligibility check and from the
	// freed length that decides between relisting and a short-term expiry.
	Today time.Time
}

type Decision struct {
	Outcome  Outcome
	Mutation Mutation
	// Freed are the parts of the cancelled range that became open.
	Freed []daterange.DateRange
	// Adopted are the freed parts folded into the advertisement.
	Adopted []daterange.DateRange
}

type Engine struct {
	Limiter advertising.Limiter
}

func NewEngine(limiter advertising.Limiter) Engine {
	return Engine{Limiter: limiter}
}

// Decide classifies a cancellation. Rules are tried in order: merge, relist,
// limit exceeded, short term.
func (e Engine) Decide(in Input) (Decision, error) {
	p := in.Property
	if p == nil {
		return Decision{}, properties.ErrPropertyNotFound
	}
	if p.Status == properties.StatusDeleted {
		return Decision{}, properties.ErrInvalidState
	}
	if !p.HasWindow() {
		return Decision{}, ErrNoWindow
	}
	if err := in.Cancelled.Validate(); err != nil {
		return Decision{}, err
	}

	var freed []daterange.DateRange
	if clipped, ok := in.Cancelled.Clip(p.Window); ok {
		freed = daterange.Subtract(clipped, in.Remaining)
	}
	bookable := freed
	if !in.Today.IsZero() {
		bookable = availability.Upcoming(freed, in.Today)
	}
	minNights := e.Limiter.Stay.MinimumNights()
	var long []daterange.DateRange
	for _, piece := range bookable {
		if piece.Nights() >= minNights {
			long = append(long, piece)
		}
	}

	decision := Decision{Freed: freed}

	if p.IsActive() {
		advertised := advertisedSegments(p, in.Cancelled, in.Remaining)
		var touching []daterange.DateRange
		for _, piece := range freed {
			if touchesAny(piece, advertised) {
				touching = append(touching, piece)
			}
		}
		if len(touching) > 0 {
			adopted := daterange.Union(append(touching, long...))
			ads := daterange.Union(append(append([]daterange.DateRange(nil), p.Advertisements...), adopted...))
			after := availability.Segments(p.Window, in.Remaining)
			if !in.Today.IsZero() {
				after = availability.Upcoming(after, in.Today)
			}
			becomesEligible := !in.WasEligible && e.Limiter.Stay.HasBookableSegment(after)
			if !becomesEligible || e.Limiter.HasRoom(in.ActiveCount) {
				decision.Adopted = adopted
				return e.finish(decision, p, KindMerged, properties.StatusActive, ads), nil
			}
		}
	}

	if len(long) > 0 {
		if e.Limiter.HasRoom(in.ActiveCount) {
			ads := append([]daterange.DateRange(nil), long...)
			if p.IsActive() {
				ads = append(ads, p.Advertisements...)
			}
			decision.Adopted = daterange.Union(long)
			return e.finish(decision, p, KindRelisted, properties.StatusActive, daterange.Union(ads)), nil
		}
		return e.finish(decision, p, KindLimitExceeded, properties.StatusExpired, p.Advertisements), nil
	}
	return e.finish(decision, p, KindShortTerm, properties.StatusExpired, p.Advertisements), nil
}

func (e Engine) finish(d Decision, p *properties.Property, kind Kind, status properties.Status, ads []daterange.DateRange) Decision {
	d.Outcome = Outcome{Kind: kind, PropertyID: p.ID, Tab: kind.Tab()}
	d.Mutation = Mutation{
		Status:         status,
		Advertisements: append([]daterange.DateRange(nil), ads...),
	}
	if status == properties.StatusExpired {
		d.Mutation.Reason = string(kind)
	}
	return d
}

// Apply performs the decided mutation on the property aggregate.
func (d Decision) Apply(p *properties.Property, now time.Time) error {
	if p == nil || p.ID != d.Outcome.PropertyID {
		return errors.New("relisting: decision applied to a different property")
	}
	switch d.Outcome.Kind {
	case KindMerged:
		return p.ExtendAdvertisement(d.Adopted, now)
	case KindRelisted:
		return p.Relist(d.Adopted, now)
	case KindLimitExceeded, KindShortTerm:
		return p.Expire(d.Mutation.Reason, now)
	default:
		return fmt.Errorf("relisting: unknown outcome %q", d.Outcome.Kind)
	}
}

// advertisedSegments is the part of the current advertisement that is open while
// the cancelled booking still holds its dates.
func advertisedSegments(p *properties.Property, cancelled daterange.DateRange, remaining []daterange.DateRange) []daterange.DateRange {
	before := availability.Segments(p.Window, append(append([]daterange.DateRange(nil), remaining...), cancelled))
	var out []daterange.DateRange
	for _, seg := range before {
		for _, ad := range p.Advertisements {
			if c, ok := seg.Clip(ad); ok {
				out = append(out, c)
			}
		}
	}
	return daterange.Union(out)
}

func touchesAny(r daterange.DateRange, ranges []daterange.DateRange) bool {
	for _, other := range ranges {
		if r.Touches(other) {
			return true
		}
	}
	return false
}
