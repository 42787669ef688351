package availability

import (
	"time"

	"weekrent/internal/domain/shared/daterange"
)

// StayPolicy fixes the stay granularity: StepDays nights per step, at most MaxSteps steps.
type StayPolicy struct {
	StepDays int
	MaxSteps int
}

var DefaultStayPolicy = StayPolicy{StepDays: 7, MaxSteps: 4}

func (p StayPolicy) normalized() StayPolicy {
	if p.StepDays <= 0 {
		p.StepDays = DefaultStayPolicy.StepDays
	}
	if p.MaxSteps <= 0 {
		p.MaxSteps = DefaultStayPolicy.MaxSteps
	}
	return p
}

// MinimumNights is the shortest stay that can be booked or advertised on its own.
func (p StayPolicy) MinimumNights() int {
	return p.normalized().StepDays
}

func (p StayPolicy) MaximumNights() int {
	n := p.normalized()
	return n.StepDays * n.MaxSteps
}

// AllowsNights reports whether a stay of n nights is one of the permitted lengths.
func (p StayPolicy) AllowsNights(n int) bool {
	np := p.normalized()
	return n > 0 && n%np.StepDays == 0 && n <= np.StepDays*np.MaxSteps
}

// CheckOutOptions lists checkIn+k*StepDays for k in 1..MaxSteps, stopping at limit.
func (p StayPolicy) CheckOutOptions(checkIn, limit time.Time) []time.Time {
	np := p.normalized()
	checkIn = daterange.Day(checkIn)
	limit = daterange.Day(limit)
	out := make([]time.Time, 0, np.MaxSteps)
	for k := 1; k <= np.MaxSteps; k++ {
		d := daterange.AddDays(checkIn, k*np.StepDays)
		if d.After(limit) {
			break
		}
		out = append(out, d)
	}
	return out
}

// HasBookableSegment reports whether any segment is long enough for a minimum stay.
func (p StayPolicy) HasBookableSegment(segments []daterange.DateRange) bool {
	min := p.MinimumNights()
	for _, seg := range segments {
		if seg.Nights() >= min {
			return true
		}
	}
	return false
}
