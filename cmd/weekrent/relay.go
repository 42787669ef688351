package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"weekrent/internal/infra/config"
	"weekrent/internal/infra/obs"
)

func newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Relay committed outbox events to Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StorageMode != config.StorageMongo {
				return fmt.Errorf("relay needs STORAGE_MODE=%s, the memory outbox is relayed by serve", config.StorageMongo)
			}
			logger := obs.NewLogger(cfg.Env)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApplication(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = app.Close(closeCtx)
			}()

			worker, closeProducer, err := app.relay()
			if err != nil {
				return err
			}
			defer closeProducer()

			logger.Info("outbox relay starting", "brokers", cfg.KafkaBrokers, "prefix", cfg.KafkaTopicPrefix)
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
