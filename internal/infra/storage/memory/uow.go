package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "weekrent/internal/app/outbox"
	"weekrent/internal/app/uow"
	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
)

// Factory wires the in-memory store into a unit-of-work boundary.
type Factory struct {
	Store *Store
}

// ErrFactoryMisconfigured indicates a missing store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a unit with snapshot-free reads and version-checked writes.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:      f.Store,
		readOnly:   opts.ReadOnly,
		properties: make(map[domainproperties.PropertyID]*domainproperties.Property),
		deleted:    make(map[domainproperties.PropertyID]int64),
		bookings:   make(map[domainbooking.BookingID]*domainbooking.Booking),
		locks:      make(map[string]func()),
	}, nil
}

// Unit is a uow.UnitOfWork backed by the in-memory store.
type Unit struct {
	store    *Store
	readOnly bool

	mu         sync.Mutex
	properties map[domainproperties.PropertyID]*domainproperties.Property
	deleted    map[domainproperties.PropertyID]int64
	bookings   map[domainbooking.BookingID]*domainbooking.Booking
	events     []appoutbox.EventRecord
	locks      map[string]func()
	closed     bool
}

type unitKey struct{}

func (u *Unit) Properties() domainproperties.Repository {
	return PropertyRepository{unit: u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return BookingRepository{unit: u}
}

// InjectContext lets the outbox find the unit it should stage records in.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, unitKey{}, u)
}

// Lock blocks until key is free or ctx is done. Taking a key twice is a no-op.
func (u *Unit) Lock(ctx context.Context, key string) error {
	u.mu.Lock()
	if err := u.usable(); err != nil {
		u.mu.Unlock()
		return err
	}
	if _, held := u.locks[key]; held {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	release, err := u.store.locks.acquire(ctx, key)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		release()
		return ErrUnitClosed
	}
	u.locks[key] = release
	return nil
}

// Commit applies staged writes if every touched record still has the version it was read at.
func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	defer u.close()

	s := u.store
	s.mu.Lock()
	if err := u.checkVersions(); err != nil {
		s.mu.Unlock()
		return err
	}
	for id, p := range u.properties {
		stored := p.Clone()
		stored.Version++
		s.properties[id] = stored
	}
	for id := range u.deleted {
		delete(s.properties, id)
	}
	for id, b := range u.bookings {
		stored := b.Clone()
		stored.Version++
		s.bookings[id] = stored
	}
	s.mu.Unlock()

	if len(u.events) > 0 {
		s.outbox.append(u.events...)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.close()
	return nil
}

// checkVersions runs with the store write lock held.
func (u *Unit) checkVersions() error {
	s := u.store
	for id, p := range u.properties {
		if !sameVersion(s.properties[id], p.Version) {
			return uow.ErrConcurrentModification
		}
	}
	for id, version := range u.deleted {
		if !sameVersion(s.properties[id], version) {
			return uow.ErrConcurrentModification
		}
	}
	for id, b := range u.bookings {
		current, ok := s.bookings[id]
		if ok && current.Version != b.Version || !ok && b.Version != 0 {
			return uow.ErrConcurrentModification
		}
	}
	return nil
}

func sameVersion(current *domainproperties.Property, version int64) bool {
	if current == nil {
		return version == 0
	}
	return current.Version == version
}

func (u *Unit) stage(record appoutbox.EventRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	u.events = append(u.events, record)
	return nil
}

func (u *Unit) close() {
	u.closed = true
	for key, release := range u.locks {
		release()
		delete(u.locks, key)
	}
	u.properties = nil
	u.deleted = nil
	u.bookings = nil
	u.events = nil
}

func (u *Unit) usable() error {
	if u.closed {
		return ErrUnitClosed
	}
	return nil
}

func (u *Unit) writable() error {
	if u.closed {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	return nil
}

var _ uow.UnitOfWork = (*Unit)(nil)
