package advertising

import (
	"weekrent/internal/domain/availability"
	"weekrent/internal/domain/properties"
	"weekrent/internal/domain/shared/daterange"
)

const DefaultCap = 5

// Candidate is a property together with its current open segments.
type Candidate struct {
	Property *properties.Property
	Segments []daterange.DateRange
}

// Limiter decides which of an owner's properties count as actively advertised.
type Limiter struct {
	Cap  int
	Stay availability.StayPolicy
}

func NewLimiter(cap int, stay availability.StayPolicy) Limiter {
	if cap <= 0 {
		cap = DefaultCap
	}
	return Limiter{Cap: cap, Stay: stay}
}

func (l Limiter) cap() int {
	if l.Cap <= 0 {
		return DefaultCap
	}
	return l.Cap
}

// IsActiveEligible is true for an active property with at least one segment of a minimum stay.
func (l Limiter) IsActiveEligible(p *properties.Property, segments []daterange.DateRange) bool {
	if p == nil || p.Status != properties.StatusActive {
		return false
	}
	return l.Stay.HasBookableSegment(segments)
}

// ActiveCount counts eligible candidates, skipping the property with id except.
func (l Limiter) ActiveCount(candidates []Candidate, except properties.PropertyID) int {
	n := 0
	for _, c := range candidates {
		if c.Property == nil || (except != "" && c.Property.ID == except) {
			continue
		}
		if l.IsActiveEligible(c.Property, c.Segments) {
			n++
		}
	}
	return n
}

// HasRoom reports whether one more property may become active next to count others.
func (l Limiter) HasRoom(count int) bool {
	return count < l.cap()
}

func (l Limiter) Limit() int { return l.cap() }

type Tabs struct {
	Active                  []Candidate
	Expired                 []Candidate
	Rented                  []Candidate
	Deleted                 []Candidate
	ExcludedFromAdvertising []properties.PropertyID
}

// Partition splits an owner's properties into listing tabs. Active properties whose
// segments are all shorter than a minimum stay are shown with the expired ones.
func (l Limiter) Partition(candidates []Candidate) Tabs {
	var tabs Tabs
	for _, c := range candidates {
		if c.Property == nil {
			continue
		}
		switch c.Property.Status {
		case properties.StatusActive:
			if l.IsActiveEligible(c.Property, c.Segments) {
				tabs.Active = append(tabs.Active, c)
				continue
			}
			tabs.ExcludedFromAdvertising = append(tabs.ExcludedFromAdvertising, c.Property.ID)
			tabs.Expired = append(tabs.Expired, c)
		case properties.StatusExpired:
			tabs.Expired = append(tabs.Expired, c)
		case properties.StatusRented:
			tabs.Rented = append(tabs.Rented, c)
		case properties.StatusDeleted:
			tabs.Deleted = append(tabs.Deleted, c)
		}
	}
	return tabs
}
