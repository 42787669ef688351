package availability

import (
	"errors"
	"time"

	"weekrent/internal/domain/shared/daterange"
)

var (
	ErrMinimumStayUnavailable = errors.New("availability: minimum stay does not fit before the end of the available period")
	ErrDateUnavailable        = errors.New("availability: date is not available")
	ErrInvalidCheckOut        = errors.New("availability: check-out must be a whole number of weeks after check-in")
	ErrInvalidSelection       = errors.New("availability: selection step not allowed in current state")
)

type SelectionState string

const (
	StateIdle              SelectionState = "IDLE"
	StateSelectingCheckIn  SelectionState = "SELECTING_CHECK_IN"
	StateSelectingCheckOut SelectionState = "SELECTING_CHECK_OUT"
	StateComplete          SelectionState = "COMPLETE"
)

// Selection drives a check-in/check-out picker over a property's open segments.
// It is not safe for concurrent use.
type Selection struct {
	policy   StayPolicy
	segments []daterange.DateRange
	today    time.Time

	state    SelectionState
	checkIn  time.Time
	checkOut time.Time
	segment  daterange.DateRange
}

func NewSelection(segments []daterange.DateRange, today time.Time, policy StayPolicy) *Selection {
	return &Selection{
		policy:   policy.normalized(),
		segments: daterange.Sorted(segments),
		today:    daterange.Day(today),
		state:    StateIdle,
	}
}

func (s *Selection) State() SelectionState { return s.state }
func (s *Selection) CheckIn() time.Time    { return s.checkIn }
func (s *Selection) CheckOut() time.Time   { return s.checkOut }

// Begin opens the picker.
func (s *Selection) Begin() error {
	if s.state != StateIdle {
		return ErrInvalidSelection
	}
	s.state = StateSelectingCheckIn
	return nil
}

// Reset clears both bounds and returns to Idle.
func (s *Selection) Reset() {
	s.state = StateIdle
	s.checkIn = time.Time{}
	s.checkOut = time.Time{}
	s.segment = daterange.DateRange{}
}

// SelectCheckIn validates date as a check-in. A rejected date leaves the state untouched.
func (s *Selection) SelectCheckIn(date time.Time) error {
	if s.state != StateIdle && s.state != StateSelectingCheckIn {
		return ErrInvalidSelection
	}
	seg, err := s.validateCheckIn(date)
	if err != nil {
		return err
	}
	s.checkIn = daterange.Day(date)
	s.checkOut = time.Time{}
	s.segment = seg
	s.state = StateSelectingCheckOut
	return nil
}

// SelectCheckOut accepts one of CheckOutOptions and completes the selection.
func (s *Selection) SelectCheckOut(date time.Time) (daterange.DateRange, error) {
	if s.state != StateSelectingCheckOut {
		return daterange.DateRange{}, ErrInvalidSelection
	}
	if !s.isCheckOutOption(date) {
		return daterange.DateRange{}, ErrInvalidCheckOut
	}
	s.checkOut = daterange.Day(date)
	s.state = StateComplete
	return daterange.DateRange{CheckIn: s.checkIn, CheckOut: s.checkOut}, nil
}

// Pick handles a click on date. While a check-out is expected, a date that is not a
// valid check-out restarts the selection with date as the new check-in.
// The returned range is non-zero once the selection completes.
func (s *Selection) Pick(date time.Time) (daterange.DateRange, error) {
	switch s.state {
	case StateIdle, StateSelectingCheckIn:
		return daterange.DateRange{}, s.SelectCheckIn(date)
	case StateSelectingCheckOut:
		if s.isCheckOutOption(date) {
			return s.SelectCheckOut(date)
		}
		s.checkIn = time.Time{}
		s.segment = daterange.DateRange{}
		s.state = StateSelectingCheckIn
		return daterange.DateRange{}, s.SelectCheckIn(date)
	default:
		return daterange.DateRange{}, ErrInvalidSelection
	}
}

// CheckOutOptions lists the check-out dates allowed for the current check-in.
func (s *Selection) CheckOutOptions() []time.Time {
	if s.state != StateSelectingCheckOut && s.state != StateComplete {
		return nil
	}
	return s.policy.CheckOutOptions(s.checkIn, s.segment.CheckOut)
}

// Result returns the selected stay once the selection is complete.
func (s *Selection) Result() (daterange.DateRange, bool) {
	if s.state != StateComplete {
		return daterange.DateRange{}, false
	}
	return daterange.DateRange{CheckIn: s.checkIn, CheckOut: s.checkOut}, true
}

func (s *Selection) validateCheckIn(date time.Time) (daterange.DateRange, error) {
	d := daterange.Day(date)
	if d.IsZero() || d.Before(s.today) {
		return daterange.DateRange{}, ErrDateUnavailable
	}
	seg, ok := Containing(s.segments, d)
	if !ok {
		return daterange.DateRange{}, ErrDateUnavailable
	}
	remaining := daterange.DateRange{CheckIn: d, CheckOut: seg.CheckOut}
	if remaining.Nights() < s.policy.MinimumNights() {
		return daterange.DateRange{}, ErrMinimumStayUnavailable
	}
	return seg, nil
}

func (s *Selection) isCheckOutOption(date time.Time) bool {
	d := daterange.Day(date)
	for _, option := range s.policy.CheckOutOptions(s.checkIn, s.segment.CheckOut) {
		if option.Equal(d) {
			return true
		}
	}
	return false
}

// ValidateStay checks a stay chosen outside the picker against the same rules.
func ValidateStay(segments []daterange.DateRange, stay daterange.DateRange, today time.Time, policy StayPolicy) error {
	if err := stay.Validate(); err != nil {
		return err
	}
	sel := NewSelection(segments, today, policy)
	if err := sel.SelectCheckIn(stay.CheckIn); err != nil {
		return err
	}
	if !sel.policy.AllowsNights(stay.Nights()) {
		return ErrInvalidCheckOut
	}
	if !sel.segment.Contains(stay) {
		return ErrDateUnavailable
	}
	_, err := sel.SelectCheckOut(stay.CheckOut)
	return err
}
