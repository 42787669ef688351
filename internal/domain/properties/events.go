package properties

import (
	"time"

	"weekrent/internal/domain/shared/daterange"
)

type PropertyCreated struct {
	PropertyID PropertyID
	OwnerID    OwnerID
	Window     daterange.DateRange
	At         time.Time
}

func (e PropertyCreated) EventName() string     { return "property.created" }
func (e PropertyCreated) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyCreated) OccurredAt() time.Time { return e.At }

type AdvertisementExtended struct {
	PropertyID     PropertyID
	Advertisements []daterange.DateRange
	At             time.Time
}

func (e AdvertisementExtended) EventName() string     { return "property.advertisement_extended" }
func (e AdvertisementExtended) AggregateID() string   { return string(e.PropertyID) }
func (e AdvertisementExtended) OccurredAt() time.Time { return e.At }

type PropertyRelisted struct {
	PropertyID     PropertyID
	OwnerID        OwnerID
	Advertisements []daterange.DateRange
	At             time.Time
}

func (e PropertyRelisted) EventName() string     { return "property.relisted" }
func (e PropertyRelisted) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyRelisted) OccurredAt() time.Time { return e.At }

type PropertyExpired struct {
	PropertyID PropertyID
	OwnerID    OwnerID
	Reason     string
	At         time.Time
}

func (e PropertyExpired) EventName() string     { return "property.expired" }
func (e PropertyExpired) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyExpired) OccurredAt() time.Time { return e.At }

type PropertyRented struct {
	PropertyID PropertyID
	At         time.Time
}

func (e PropertyRented) EventName() string     { return "property.rented" }
func (e PropertyRented) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyRented) OccurredAt() time.Time { return e.At }

type PropertyDeleted struct {
	PropertyID PropertyID
	OwnerID    OwnerID
	Permanent  bool
	At         time.Time
}

func (e PropertyDeleted) EventName() string     { return "property.deleted" }
func (e PropertyDeleted) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyDeleted) OccurredAt() time.Time { return e.At }

type PropertyReactivated struct {
	PropertyID PropertyID
	OwnerID    OwnerID
	At         time.Time
}

func (e PropertyReactivated) EventName() string     { return "property.reactivated" }
func (e PropertyReactivated) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyReactivated) OccurredAt() time.Time { return e.At }
