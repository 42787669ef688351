package uow

import (
	"context"
	"errors"
	"sync"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type unitKey struct{}

type hooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// ContextInjector is implemented by units whose storage needs more than the unit
// itself in ctx, such as a driver session or a staged outbox.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

// Attach stores unit in ctx after letting it inject its own values.
// Hooks registered with AfterCommit on the returned ctx run when Commit succeeds.
func Attach(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	ctx = context.WithValue(ctx, hooksKey{}, &commitHooks{})
	return ContextWithUnitOfWork(ctx, unit)
}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

// FromContext returns the unit a middleware or outer handler already started.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// AfterCommit defers fn until the unit attached to ctx commits. Hooks of a unit
// that rolls back are dropped. Without an attached unit fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if fn == nil {
		return
	}
	hooks, ok := ctx.Value(hooksKey{}).(*commitHooks)
	if !ok {
		fn(ctx)
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

// Commit commits unit and then runs the hooks registered on ctx, in order.
func Commit(ctx context.Context, unit UnitOfWork) error {
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	hooks, ok := ctx.Value(hooksKey{}).(*commitHooks)
	if !ok {
		return nil
	}
	hooks.mu.Lock()
	fns := hooks.fns
	hooks.fns = nil
	hooks.mu.Unlock()
	hookCtx := context.WithoutCancel(ctx)
	for _, fn := range fns {
		fn(hookCtx)
	}
	return nil
}
