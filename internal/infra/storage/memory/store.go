package memory

import (
	"context"
	"errors"
	"sync"

	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
)

var (
	// ErrUnitClosed is returned when a unit is used after commit or rollback.
	ErrUnitClosed = errors.New("memory: unit of work already closed")
	// ErrReadOnlyUnit is returned when a read-only unit tries to write.
	ErrReadOnlyUnit = errors.New("memory: write in read-only unit")
)

// Store is the shared in-memory state behind every unit. Units stage their writes
// and apply them here on commit after a version check.
type Store struct {
	mu         sync.RWMutex
	properties map[domainproperties.PropertyID]*domainproperties.Property
	bookings   map[domainbooking.BookingID]*domainbooking.Booking

	locks  keyedLocks
	outbox *Outbox
}

func NewStore() *Store {
	s := &Store{
		properties: make(map[domainproperties.PropertyID]*domainproperties.Property),
		bookings:   make(map[domainbooking.BookingID]*domainbooking.Booking),
		locks:      keyedLocks{held: make(map[string]chan struct{})},
	}
	s.outbox = newOutbox(s)
	return s
}

// Outbox returns the store's event outbox.
func (s *Store) Outbox() *Outbox {
	return s.outbox
}

// Factory returns a unit of work factory over the store.
func (s *Store) Factory() Factory {
	return Factory{Store: s}
}

// keyedLocks is a set of named mutexes that honour context cancellation.
type keyedLocks struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func (k *keyedLocks) acquire(ctx context.Context, key string) (func(), error) {
	for {
		k.mu.Lock()
		wait, busy := k.held[key]
		if !busy {
			done := make(chan struct{})
			k.held[key] = done
			k.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					k.mu.Lock()
					delete(k.held, key)
					k.mu.Unlock()
					close(done)
				})
			}, nil
		}
		k.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
