package dto

import (
	"time"

	domainrange "weekrent/internal/domain/shared/daterange"
)

type Range struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Nights   int       `json:"nights"`
}

func MapRange(r domainrange.DateRange) Range {
	return Range{CheckIn: r.CheckIn, CheckOut: r.CheckOut, Nights: r.Nights()}
}

func MapRanges(rs []domainrange.DateRange) []Range {
	out := make([]Range, 0, len(rs))
	for _, r := range rs {
		out = append(out, MapRange(r))
	}
	return out
}

// ParseRanges converts ranges back to domain values, normalizing bounds to whole days.
func ParseRanges(rs []Range) []domainrange.DateRange {
	out := make([]domainrange.DateRange, 0, len(rs))
	for _, r := range rs {
		out = append(out, domainrange.DateRange{CheckIn: domainrange.Day(r.CheckIn), CheckOut: domainrange.Day(r.CheckOut)})
	}
	return out
}

type Segments struct {
	PropertyID string  `json:"property_id"`
	Window     *Range  `json:"window,omitempty"`
	Segments   []Range `json:"segments"`
	MinNights  int     `json:"min_nights"`
	Cached     bool    `json:"cached"`
}

type CheckOutOptions struct {
	PropertyID string      `json:"property_id"`
	CheckIn    time.Time   `json:"check_in"`
	Options    []time.Time `json:"options"`
}
