package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct{ Value int }

func (pingCommand) Key() string { return "test.ping" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestInMemoryBus_Dispatch(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, "test.ping", HandlerFunc[pingCommand, int](func(ctx context.Context, cmd pingCommand) (int, error) {
		return cmd.Value * 2, nil
	}))

	got, err := Dispatch[pingCommand, int](context.Background(), bus, pingCommand{Value: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Dispatch[pingCommand, string](context.Background(), bus, pingCommand{Value: 1})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = bus.Dispatch(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	assert.Equal(t, []string{"test.ping"}, bus.Keys())
}

func TestInMemoryBus_RejectsDuplicateKeys(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[pingCommand, int](func(ctx context.Context, cmd pingCommand) (int, error) { return 0, nil })
	RegisterHandler(bus, "test.ping", h)
	assert.Panics(t, func() { RegisterHandler(bus, "test.ping", h) })
}
