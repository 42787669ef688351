package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "weekrent/internal/domain/booking"
	domainproperties "weekrent/internal/domain/properties"
)

type stubUnit struct {
	commitErr error
	commits   int
}

func (u *stubUnit) Properties() domainproperties.Repository    { return nil }
func (u *stubUnit) Bookings() domainbooking.Repository         { return nil }
func (u *stubUnit) Lock(ctx context.Context, key string) error { return nil }
func (u *stubUnit) Rollback(ctx context.Context) error         { return nil }

func (u *stubUnit) Commit(ctx context.Context) error {
	u.commits++
	return u.commitErr
}

func TestAfterCommit_RunsOnlyAfterCommit(t *testing.T) {
	unit := &stubUnit{}
	ctx := Attach(context.Background(), unit)

	var order []string
	AfterCommit(ctx, func(context.Context) { order = append(order, "first") })
	AfterCommit(ctx, func(context.Context) { order = append(order, "second") })
	assert.Empty(t, order)

	require.NoError(t, Commit(ctx, unit))
	assert.Equal(t, []string{"first", "second"}, order)

	require.NoError(t, Commit(ctx, unit))
	assert.Len(t, order, 2)
}

func TestAfterCommit_DroppedWhenCommitFails(t *testing.T) {
	unit := &stubUnit{commitErr: errors.New("boom")}
	ctx := Attach(context.Background(), unit)

	ran := false
	AfterCommit(ctx, func(context.Context) { ran = true })

	require.Error(t, Commit(ctx, unit))
	assert.False(t, ran)
}

func TestAfterCommit_RunsImmediatelyWithoutUnit(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	assert.True(t, ran)
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	unit := &stubUnit{}
	got, ok := FromContext(Attach(context.Background(), unit))
	require.True(t, ok)
	assert.Same(t, unit, got)
}
