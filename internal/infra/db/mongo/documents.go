package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
	domainrange "weekrent/internal/domain/shared/daterange"
)

const (
	propertiesCollection = "agg_property"
	bookingsCollection   = "agg_booking"
	locksCollection      = "uow_locks"
)

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newRangeDocument(r domainrange.DateRange) rangeDocument {
	if r.IsZero() {
		return rangeDocument{}
	}
	return rangeDocument{CheckIn: r.CheckIn.UnixMilli(), CheckOut: r.CheckOut.UnixMilli()}
}

func (d rangeDocument) toRange() domainrange.DateRange {
	if d.CheckIn == 0 && d.CheckOut == 0 {
		return domainrange.DateRange{}
	}
	return domainrange.DateRange{CheckIn: timestampToTime(d.CheckIn), CheckOut: timestampToTime(d.CheckOut)}
}

type propertyDocument struct {
	ID              string          `bson:"_id"`
	OwnerID         string          `bson:"owner_id"`
	Title           string          `bson:"title"`
	Window          rangeDocument   `bson:"window"`
	Status          string          `bson:"status"`
	Advertisements  []rangeDocument `bson:"advertisements"`
	CalendarFeedURL string          `bson:"calendar_feed_url,omitempty"`
	StatusReason    string          `bson:"status_reason,omitempty"`
	CreatedAt       int64           `bson:"created_at"`
	UpdatedAt       int64           `bson:"updated_at"`
	Version         int64           `bson:"version"`
}

func newPropertyDocument(p *domainproperties.Property) propertyDocument {
	ads := make([]rangeDocument, 0, len(p.Advertisements))
	for _, ad := range p.Advertisements {
		ads = append(ads, newRangeDocument(ad))
	}
	return propertyDocument{
		ID:              string(p.ID),
		OwnerID:         string(p.Owner),
		Title:           p.Title,
		Window:          newRangeDocument(p.Window),
		Status:          string(p.Status),
		Advertisements:  ads,
		CalendarFeedURL: p.CalendarFeedURL,
		StatusReason:    p.StatusReason,
		CreatedAt:       p.CreatedAt.UnixMilli(),
		UpdatedAt:       p.UpdatedAt.UnixMilli(),
		Version:         p.Version,
	}
}

func (d propertyDocument) toAggregate() *domainproperties.Property {
	var ads []domainrange.DateRange
	for _, ad := range d.Advertisements {
		ads = append(ads, ad.toRange())
	}
	return &domainproperties.Property{
		ID:              domainproperties.PropertyID(d.ID),
		Owner:           domainproperties.OwnerID(d.OwnerID),
		Title:           d.Title,
		Window:          d.Window.toRange(),
		Status:          domainproperties.Status(d.Status),
		Advertisements:  ads,
		CalendarFeedURL: d.CalendarFeedURL,
		StatusReason:    d.StatusReason,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}

type bookingDocument struct {
	ID           string        `bson:"_id"`
	PropertyID   string        `bson:"property_id"`
	GuestID      string        `bson:"guest_id"`
	Range        rangeDocument `bson:"range"`
	Status       string        `bson:"status"`
	CancelReason string        `bson:"cancel_reason,omitempty"`
	CreatedAt    int64         `bson:"created_at"`
	UpdatedAt    int64         `bson:"updated_at"`
	Version      int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:           string(b.ID),
		PropertyID:   string(b.PropertyID),
		GuestID:      b.GuestID,
		Range:        newRangeDocument(b.Range),
		Status:       string(b.Status),
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt.UnixMilli(),
		UpdatedAt:    b.UpdatedAt.UnixMilli(),
		Version:      b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:           domainbooking.BookingID(d.ID),
		PropertyID:   domainproperties.PropertyID(d.PropertyID),
		GuestID:      d.GuestID,
		Range:        d.Range.toRange(),
		Status:       domainbooking.Status(d.Status),
		CancelReason: d.CancelReason,
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
		Version:      d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func bsonKeys(fields ...string) bson.D {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return keys
}
