package availability

import (
	"time"

	"weekrent/internal/domain/shared/daterange"
)

// Segments returns the maximal open sub-intervals of window not covered by booked.
// The result is sorted, non-overlapping and inside window; an absent window yields nil.
// Booked ranges are treated alike regardless of where they came from.
func Segments(window daterange.DateRange, booked []daterange.DateRange) []daterange.DateRange {
	if window.Empty() {
		return nil
	}
	return daterange.Subtract(window, booked)
}

// Longest returns the segment with the most nights; the earliest wins ties.
func Longest(segments []daterange.DateRange) (daterange.DateRange, bool) {
	var best daterange.DateRange
	found := false
	for _, seg := range segments {
		if !found || seg.Nights() > best.Nights() {
			best = seg
			found = true
		}
	}
	return best, found
}

// Containing returns the segment that holds day t.
func Containing(segments []daterange.DateRange, t time.Time) (daterange.DateRange, bool) {
	d := daterange.Day(t)
	for _, seg := range segments {
		if seg.ContainsDate(d) {
			return seg, true
		}
	}
	return daterange.DateRange{}, false
}

// Upcoming clips segments to the days from today on.
func Upcoming(segments []daterange.DateRange, today time.Time) []daterange.DateRange {
	today = daterange.Day(today)
	out := make([]daterange.DateRange, 0, len(segments))
	for _, seg := range segments {
		if seg.CheckIn.Before(today) {
			seg.CheckIn = today
		}
		if seg.Empty() {
			continue
		}
		out = append(out, seg)
	}
	return out
}
