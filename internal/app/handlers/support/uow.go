package support

import (
	"context"

	"weekrent/internal/app/uow"
)

func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Attach(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// ManagedUnit is a write unit that may have been started by the handler itself.
type ManagedUnit struct {
	uow.UnitOfWork
	managed   bool
	committed bool
}

// BeginUnit reuses the unit from ctx or starts one the caller must Finish.
func BeginUnit(ctx context.Context, factory uow.UoWFactory) (*ManagedUnit, context.Context, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return &ManagedUnit{UnitOfWork: unit}, ctx, nil
	}
	if factory == nil {
		return nil, ctx, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, err
	}
	return &ManagedUnit{UnitOfWork: unit, managed: true}, uow.Attach(ctx, unit), nil
}

// Commit commits a unit the handler started and runs its after-commit hooks.
// Units owned by middleware are left alone.
func (m *ManagedUnit) Commit(ctx context.Context) error {
	if !m.managed || m.committed {
		return nil
	}
	if err := uow.Commit(ctx, m.UnitOfWork); err != nil {
		return err
	}
	m.committed = true
	return nil
}

// Finish rolls back a handler-started unit that was not committed.
func (m *ManagedUnit) Finish(ctx context.Context) {
	if m == nil || !m.managed || m.committed {
		return
	}
	_ = m.UnitOfWork.Rollback(context.WithoutCancel(ctx))
}
