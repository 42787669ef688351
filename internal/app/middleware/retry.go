package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"weekrent/internal/app/commands"
	"weekrent/internal/app/uow"
)

// Retry re-dispatches a command that lost a write conflict, waiting backoff[i] before attempt i+1.
// It must sit outside Transaction so every attempt gets a fresh unit.
func Retry(backoff []time.Duration, logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			for attempt := 0; ; attempt++ {
				res, err := nextFn(ctx, cmd)
				if err == nil || !errors.Is(err, uow.ErrConcurrentModification) || attempt >= len(backoff) {
					return res, err
				}
				logger.DebugContext(ctx, "retrying command after conflict", "command", cmd.Key(), "attempt", attempt+1)
				timer := time.NewTimer(backoff[attempt])
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, errors.Join(err, ctx.Err())
				case <-timer.C:
				}
			}
		})
	}
}
