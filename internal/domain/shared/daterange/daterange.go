package daterange

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [checkIn, checkOut) of calendar days.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New builds a validated range with both bounds normalized to UTC midnight.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// MustNew is New for literals in fixtures and tests.
func MustNew(checkIn, checkOut time.Time) DateRange {
	dr, err := New(checkIn, checkOut)
	if err != nil {
		panic(err)
	}
	return dr
}

// Day truncates t to the UTC midnight of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar day by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) IsZero() bool {
	return dr.CheckIn.IsZero() && dr.CheckOut.IsZero()
}

func (dr DateRange) Empty() bool {
	return !dr.CheckOut.After(dr.CheckIn)
}

func (dr DateRange) Nights() int {
	if dr.Empty() {
		return 0
	}
	return int(dr.CheckOut.Sub(dr.CheckIn).Hours() / 24)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.CheckIn.Before(dr.CheckIn) && !other.CheckOut.After(dr.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}

// Adjacent reports whether one range ends on the day the other starts.
func (dr DateRange) Adjacent(other DateRange) bool {
	return Day(dr.CheckOut).Equal(Day(other.CheckIn)) || Day(dr.CheckIn).Equal(Day(other.CheckOut))
}

// Touches is Overlaps or Adjacent.
func (dr DateRange) Touches(other DateRange) bool {
	return dr.Overlaps(other) || dr.Adjacent(other)
}

func (dr DateRange) Merge(other DateRange) (DateRange, bool) {
	if !dr.Touches(other) {
		return DateRange{}, false
	}
	start := dr.CheckIn
	if other.CheckIn.Before(start) {
		start = other.CheckIn
	}
	end := dr.CheckOut
	if other.CheckOut.After(end) {
		end = other.CheckOut
	}
	return DateRange{CheckIn: start, CheckOut: end}, true
}

// Clip returns the part of dr inside bounds; false when nothing remains.
func (dr DateRange) Clip(bounds DateRange) (DateRange, bool) {
	start := dr.CheckIn
	if bounds.CheckIn.After(start) {
		start = bounds.CheckIn
	}
	end := dr.CheckOut
	if bounds.CheckOut.Before(end) {
		end = bounds.CheckOut
	}
	if !end.After(start) {
		return DateRange{}, false
	}
	return DateRange{CheckIn: start, CheckOut: end}, true
}

// Subtract returns the ordered pieces of base not covered by any of ranges.
// ranges may be unsorted, overlapping or partly outside base.
func Subtract(base DateRange, ranges []DateRange) []DateRange {
	if base.Empty() {
		return nil
	}
	sorted := Sorted(ranges)
	out := make([]DateRange, 0, len(sorted)+1)
	cursor := base.CheckIn
	for _, r := range sorted {
		clipped, ok := r.Clip(base)
		if !ok {
			continue
		}
		if clipped.CheckIn.After(cursor) {
			out = append(out, DateRange{CheckIn: cursor, CheckOut: clipped.CheckIn})
		}
		if clipped.CheckOut.After(cursor) {
			cursor = clipped.CheckOut
		}
	}
	if base.CheckOut.After(cursor) {
		out = append(out, DateRange{CheckIn: cursor, CheckOut: base.CheckOut})
	}
	return out
}

// Union merges touching ranges into an ordered, non-overlapping list.
func Union(ranges []DateRange) []DateRange {
	sorted := Sorted(ranges)
	out := make([]DateRange, 0, len(sorted))
	for _, r := range sorted {
		if r.Empty() {
			continue
		}
		if n := len(out); n > 0 {
			if merged, ok := out[n-1].Merge(r); ok {
				out[n-1] = merged
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// TotalNights sums the nights covered by the union of ranges.
func TotalNights(ranges []DateRange) int {
	total := 0
	for _, r := range Union(ranges) {
		total += r.Nights()
	}
	return total
}

// Sorted returns a copy of ranges ordered by check-in, then check-out.
func Sorted(ranges []DateRange) []DateRange {
	out := make([]DateRange, len(ranges))
	copy(out, ranges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].CheckOut.Before(out[j].CheckOut)
		}
		return out[i].CheckIn.Before(out[j].CheckIn)
	})
	return out
}
