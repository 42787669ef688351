package uow

import (
	"context"
	"errors"
	"sync"
)

// Locker hands out exclusive locks that outlive a single process, e.g. in redis.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// WithLocker makes every unit's Lock also take the distributed lock for the key.
func WithLocker(factory UoWFactory, locker Locker) UoWFactory {
	if locker == nil {
		return factory
	}
	return lockingFactory{inner: factory, locker: locker}
}

type lockingFactory struct {
	inner  UoWFactory
	locker Locker
}

func (f lockingFactory) Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error) {
	unit, err := f.inner.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &lockingUnit{UnitOfWork: unit, locker: f.locker}, nil
}

type lockingUnit struct {
	UnitOfWork
	locker Locker

	mu       sync.Mutex
	releases []func(context.Context) error
}

func (u *lockingUnit) Lock(ctx context.Context, key string) error {
	release, err := u.locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.releases = append(u.releases, release)
	u.mu.Unlock()
	if err := u.UnitOfWork.Lock(ctx, key); err != nil {
		return errors.Join(err, u.release(ctx))
	}
	return nil
}

func (u *lockingUnit) Commit(ctx context.Context) error {
	err := u.UnitOfWork.Commit(ctx)
	return errors.Join(err, u.release(ctx))
}

func (u *lockingUnit) Rollback(ctx context.Context) error {
	err := u.UnitOfWork.Rollback(ctx)
	return errors.Join(err, u.release(ctx))
}

// InjectContext keeps session-bound contexts working through the wrapper.
func (u *lockingUnit) InjectContext(ctx context.Context) context.Context {
	if injector, ok := u.UnitOfWork.(ContextInjector); ok {
		return injector.InjectContext(ctx)
	}
	return ctx
}

func (u *lockingUnit) release(ctx context.Context) error {
	u.mu.Lock()
	releases := u.releases
	u.releases = nil
	u.mu.Unlock()
	var errs []error
	for i := len(releases) - 1; i >= 0; i-- {
		if err := releases[i](context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
