package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"weekrent/internal/infra/config"
	ginserver "weekrent/internal/infra/http/gin"
	"weekrent/internal/infra/obs"
)

func newServeCmd() *cobra.Command {
	var withRelay bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the cancellation consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
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
				if err := app.Close(closeCtx); err != nil {
					logger.Warn("shutdown cleanup failed", "error", err)
				}
			}()

			// The memory outbox lives in this process, so it can only be relayed from here.
			if withRelay || cfg.StorageMode == config.StorageMemory {
				worker, closeProducer, err := app.relay()
				if err != nil {
					return err
				}
				defer closeProducer()
				go func() {
					if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("outbox relay stopped", "error", err)
					}
				}()
			}

			consumer, err := app.cancellationConsumer()
			if err != nil {
				return err
			}
			if consumer != nil {
				defer consumer.Close()
				go func() {
					if err := consumer.Run(ctx, []string{cfg.CancellationsTopic}); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("cancellation consumer stopped", "error", err)
					}
				}()
				logger.Info("cancellation consumer started", "topic", cfg.CancellationsTopic, "group", cfg.KafkaGroupID)
			}

			server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("http shutdown failed", "error", err)
				}
			}()

			logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("HTTP server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withRelay, "relay", false, "also relay the outbox from this process")
	return cmd
}
