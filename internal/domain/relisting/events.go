package relisting

import (
	"time"

	"weekrent/internal/domain/properties"
)

// CancellationResolved reports the outcome the owner is notified about.
type CancellationResolved struct {
	BookingID  string
	PropertyID properties.PropertyID
	OwnerID    properties.OwnerID
	Outcome    Kind
	Tab        Tab
	At         time.Time
}

func (e CancellationResolved) EventName() string     { return "relisting.cancellation_resolved" }
func (e CancellationResolved) AggregateID() string   { return string(e.PropertyID) }
func (e CancellationResolved) OccurredAt() time.Time { return e.At }
