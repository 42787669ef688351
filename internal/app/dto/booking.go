package dto

import (
	"time"

	domainbooking "weekrent/internal/domain/booking"
)

type Booking struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	GuestID      string    `json:"guest_id"`
	Stay         Range     `json:"stay"`
	Status       string    `json:"status"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	return Booking{
		ID:           string(b.ID),
		PropertyID:   string(b.PropertyID),
		GuestID:      b.GuestID,
		Stay:         MapRange(b.Range),
		Status:       string(b.Status),
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

type CancellationOutcome struct {
	BookingID      string  `json:"booking_id"`
	PropertyID     string  `json:"property_id"`
	Outcome        string  `json:"outcome"`
	Tab            string  `json:"tab"`
	PropertyStatus string  `json:"property_status"`
	Freed          []Range `json:"freed"`
	Advertisements []Range `json:"advertisements"`
}
