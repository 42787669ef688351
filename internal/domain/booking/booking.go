package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"weekrent/internal/domain/properties"
	"weekrent/internal/domain/shared/daterange"
	"weekrent/internal/domain/shared/events"
)

var (
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrBookingNotFound  = errors.New("booking: not found")
	ErrStayGranularity  = errors.New("booking: stay must be a positive whole number of weeks")
	ErrOutsideWindow    = errors.New("booking: stay is outside the advertised window")
	ErrGuestRequired    = errors.New("booking: guest id required")
	ErrPropertyRequired = errors.New("booking: property id required")
)

const weekDays = 7

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

type Booking struct {
	ID           BookingID
	PropertyID   properties.PropertyID
	GuestID      string
	Range        daterange.DateRange
	Status       Status
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByProperty(ctx context.Context, propertyID properties.PropertyID) ([]*Booking, error)
}

type CreateParams struct {
	ID         BookingID
	PropertyID properties.PropertyID
	GuestID    string
	Range      daterange.DateRange
	Window     daterange.DateRange
	CreatedAt  time.Time
}

// ValidateStay checks the invariants every booking carries from creation on.
func ValidateStay(stay, window daterange.DateRange) error {
	if err := stay.Validate(); err != nil {
		return err
	}
	if n := stay.Nights(); n <= 0 || n%weekDays != 0 {
		return ErrStayGranularity
	}
	if window.Empty() || !window.Contains(stay) {
		return ErrOutsideWindow
	}
	return nil
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if params.PropertyID == "" {
		return nil, ErrPropertyRequired
	}
	stay := daterange.DateRange{CheckIn: daterange.Day(params.Range.CheckIn), CheckOut: daterange.Day(params.Range.CheckOut)}
	if err := ValidateStay(stay, params.Window); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		GuestID:    params.GuestID,
		Range:      stay,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingRequested{BookingID: b.ID, PropertyID: b.PropertyID, GuestID: b.GuestID, Range: b.Range, At: now})
	return b, nil
}

// IsBlocking reports whether the booking makes its dates unavailable.
func (b *Booking) IsBlocking() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// Cancel is terminal; cancelling twice fails.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.IsBlocking() {
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.CancelReason = strings.TrimSpace(reason)
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Reason: b.CancelReason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	return &Booking{
		ID:           b.ID,
		PropertyID:   b.PropertyID,
		GuestID:      b.GuestID,
		Range:        b.Range,
		Status:       b.Status,
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		Version:      b.Version,
	}
}

// BlockingRanges returns the ranges of bookings that still hold their dates, skipping except.
func BlockingRanges(bookings []*Booking, except BookingID) []daterange.DateRange {
	out := make([]daterange.DateRange, 0, len(bookings))
	for _, b := range bookings {
		if b == nil || b.ID == except || !b.IsBlocking() {
			continue
		}
		out = append(out, b.Range)
	}
	return out
}
