package memory

import (
	"context"
	"sort"

	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
)

// PropertyRepository reads through the unit's staged writes to the shared store.
type PropertyRepository struct {
	unit *Unit
}

// ByID returns a copy of the property or ErrPropertyNotFound.
func (r PropertyRepository) ByID(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.usable(); err != nil {
		return nil, err
	}
	if _, gone := u.deleted[id]; gone {
		return nil, domainproperties.ErrPropertyNotFound
	}
	if p, ok := u.properties[id]; ok {
		return p.Clone(), nil
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	p, ok := u.store.properties[id]
	if !ok {
		return nil, domainproperties.ErrPropertyNotFound
	}
	return p.Clone(), nil
}

// Save stages the property; the version it was read at is checked on commit.
func (r PropertyRepository) Save(ctx context.Context, property *domainproperties.Property) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	delete(u.deleted, property.ID)
	u.properties[property.ID] = property.Clone()
	return nil
}

func (r PropertyRepository) ListByOwner(ctx context.Context, owner domainproperties.OwnerID) ([]*domainproperties.Property, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.usable(); err != nil {
		return nil, err
	}
	seen := make(map[domainproperties.PropertyID]*domainproperties.Property)
	u.store.mu.RLock()
	for id, p := range u.store.properties {
		if p.Owner == owner {
			seen[id] = p
		}
	}
	u.store.mu.RUnlock()
	for id, p := range u.properties {
		if p.Owner == owner {
			seen[id] = p
		} else {
			delete(seen, id)
		}
	}
	out := make([]*domainproperties.Property, 0, len(seen))
	for id, p := range seen {
		if _, gone := u.deleted[id]; gone {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete stages a permanent removal.
func (r PropertyRepository) Delete(ctx context.Context, id domainproperties.PropertyID) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	version := int64(0)
	if p, ok := u.properties[id]; ok {
		version = p.Version
		delete(u.properties, id)
	} else {
		u.store.mu.RLock()
		p, ok := u.store.properties[id]
		u.store.mu.RUnlock()
		if !ok {
			return domainproperties.ErrPropertyNotFound
		}
		version = p.Version
	}
	u.deleted[id] = version
	return nil
}

// BookingRepository stores bookings in memory.
type BookingRepository struct {
	unit *Unit
}

// ByID fetches a booking.
func (r BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.usable(); err != nil {
		return nil, err
	}
	if b, ok := u.bookings[id]; ok {
		return b.Clone(), nil
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	b, ok := u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b.Clone(), nil
}

// Save stages the current booking state.
func (r BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	u.bookings[booking.ID] = booking.Clone()
	return nil
}

// ListByProperty returns every booking of the property ordered by check-in.
func (r BookingRepository) ListByProperty(ctx context.Context, propertyID domainproperties.PropertyID) ([]*domainbooking.Booking, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.usable(); err != nil {
		return nil, err
	}
	seen := make(map[domainbooking.BookingID]*domainbooking.Booking)
	u.store.mu.RLock()
	for id, b := range u.store.bookings {
		if b.PropertyID == propertyID {
			seen[id] = b
		}
	}
	u.store.mu.RUnlock()
	for id, b := range u.bookings {
		if b.PropertyID == propertyID {
			seen[id] = b
		}
	}
	out := make([]*domainbooking.Booking, 0, len(seen))
	for _, b := range seen {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.CheckIn.Equal(out[j].Range.CheckIn) {
			return out[i].ID < out[j].ID
		}
		return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
	})
	return out, nil
}

var (
	_ domainproperties.Repository = PropertyRepository{}
	_ domainbooking.Repository    = BookingRepository{}
)
