package uow

import (
	"context"
	"errors"

	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
)

// ErrConcurrentModification signals a write conflict. The whole command may be retried.
var ErrConcurrentModification = errors.New("uow: concurrent modification")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Properties() domainproperties.Repository
	Bookings() domainbooking.Repository

	// Lock serializes units on key until the unit commits or rolls back.
	Lock(ctx context.Context, key string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// OwnerLockKey scopes cancellation decisions to one owner's inventory.
func OwnerLockKey(owner domainproperties.OwnerID) string {
	return "owner:" + string(owner)
}
