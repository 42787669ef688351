package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"weekrent/internal/app/commands"
	"weekrent/internal/app/dto"
	availabilityapp "weekrent/internal/app/handlers/availability"
	bookingapp "weekrent/internal/app/handlers/booking"
	propertiesapp "weekrent/internal/app/handlers/properties"
	"weekrent/internal/app/handlers/support"
	"weekrent/internal/app/middleware"
	appoutbox "weekrent/internal/app/outbox"
	"weekrent/internal/app/policies"
	"weekrent/internal/app/queries"
	"weekrent/internal/app/uow"
	"weekrent/internal/domain/advertising"
	"weekrent/internal/domain/availability"
	"weekrent/internal/domain/relisting"
	"weekrent/internal/infra/broker/kafka"
	"weekrent/internal/infra/cache"
	"weekrent/internal/infra/calendar"
	"weekrent/internal/infra/config"
	mongostore "weekrent/internal/infra/db/mongo"
	ginserver "weekrent/internal/infra/http/gin"
	"weekrent/internal/infra/inbox"
	"weekrent/internal/infra/obs"
	infraoutbox "weekrent/internal/infra/outbox"
	"weekrent/internal/infra/storage/memory"
)

type application struct {
	cfg    config.Config
	logger *slog.Logger

	commands commands.Bus
	queries  queries.Bus
	handlers ginserver.Handlers
	health   obs.HealthHandlers

	queue infraoutbox.Queue
	wake  <-chan struct{}
	inbox kafka.Inbox

	closers []func(context.Context) error
}

type storage struct {
	factory uow.UoWFactory
	outbox  appoutbox.Outbox
	queue   infraoutbox.Queue
	wake    <-chan struct{}
	idem    middleware.IdempotencyStore
	inbox   kafka.Inbox
	checks  []obs.ReadinessCheck
	closers []func(context.Context) error
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			logger.Warn("mongo index creation failed", "error", err)
		}
		box := infraoutbox.NewStore(client.DB)
		return storage{
			factory: mongostore.NewFactory(client.DB),
			outbox:  box,
			queue:   box,
			idem:    mongostore.NewIdempotencyStore(client.DB),
			inbox:   inbox.NewStore(client.DB, cfg.KafkaGroupID),
			checks:  []obs.ReadinessCheck{{Name: "mongo", Check: client.Ping}},
			closers: []func(context.Context) error{client.Close},
		}, nil
	default:
		store := memory.NewStore()
		return storage{
			factory: store.Factory(),
			outbox:  store.Outbox(),
			queue:   store.Outbox(),
			wake:    store.Outbox().Wake(),
			idem:    memory.NewIdempotencyStore(),
			inbox:   inbox.NewMemory(),
		}, nil
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, logger: logger, queue: st.queue, wake: st.wake, inbox: st.inbox, closers: st.closers}

	factory := st.factory
	var segmentCache policies.SegmentCache = memory.NewSegmentCache()
	checks := st.checks
	if cfg.RedisAddr != "" {
		client := cache.NewClient(cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		segmentCache = cache.NewSegmentCache(client)
		factory = uow.WithLocker(factory, cache.NewLocker(client))
		checks = append(checks, obs.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
	}
	app.health = obs.HealthHandlers{Checks: checks}

	stay := availability.StayPolicy{StepDays: cfg.Policy.StayStepDays, MaxSteps: cfg.Policy.StayMaxSteps}
	limiter := advertising.NewLimiter(cfg.Policy.ActiveListingCap, stay)
	inventory := support.Inventory{Feed: calendar.NewFeedClient(cfg.CalendarFeedTimeout, logger), Logger: logger}
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	cancelHandler := &bookingapp.CancelBookingHandler{
		UoWFactory: factory,
		Engine:     relisting.NewEngine(limiter),
		Inventory:  inventory,
		Outbox:     st.outbox,
		Encoder:    encoder,
		Cache:      segmentCache,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingKey, cancelHandler)
	requestHandler := &bookingapp.RequestBookingHandler{
		UoWFactory: factory,
		Inventory:  inventory,
		Stay:       stay,
		Outbox:     st.outbox,
		Encoder:    encoder,
		Cache:      segmentCache,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingKey, requestHandler)
	ownerBookings := &bookingapp.OwnerBookingHandler{
		UoWFactory: factory,
		Inventory:  inventory,
		Stay:       stay,
		Outbox:     st.outbox,
		Encoder:    encoder,
		Cache:      segmentCache,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.ConfirmOwnerBookingKey,
		commands.HandlerFunc[bookingapp.ConfirmOwnerBookingCommand, *dto.Booking](ownerBookings.Confirm))
	commands.RegisterHandler(commandBus, bookingapp.CompleteOwnerBookingKey,
		commands.HandlerFunc[bookingapp.CompleteOwnerBookingCommand, *dto.Booking](ownerBookings.Complete))
	ownerCommands := &propertiesapp.OwnerCommandsHandler{
		UoWFactory: factory,
		Inventory:  inventory,
		Limiter:    limiter,
		Outbox:     st.outbox,
		Encoder:    encoder,
		Cache:      segmentCache,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, propertiesapp.CreatePropertyKey,
		commands.HandlerFunc[propertiesapp.CreatePropertyCommand, *dto.Property](ownerCommands.Create))
	commands.RegisterHandler(commandBus, propertiesapp.DeletePropertyKey,
		commands.HandlerFunc[propertiesapp.DeletePropertyCommand, *dto.Property](ownerCommands.Delete))
	commands.RegisterHandler(commandBus, propertiesapp.ReactivatePropertyKey,
		commands.HandlerFunc[propertiesapp.ReactivatePropertyCommand, *dto.Property](ownerCommands.Reactivate))

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, availabilityapp.GetSegmentsKey, &availabilityapp.GetSegmentsHandler{
		UoWFactory: factory,
		Inventory:  inventory,
		Stay:       stay,
		Cache:      segmentCache,
		CacheTTL:   cfg.SegmentCacheTTL,
		Logger:     logger,
	})
	queries.RegisterHandler(queryBus, availabilityapp.CheckOutOptionsKey, &availabilityapp.CheckOutOptionsHandler{
		UoWFactory: factory,
		Inventory:  inventory,
		Stay:       stay,
	})
	queries.RegisterHandler(queryBus, propertiesapp.OwnerPropertiesKey, &propertiesapp.OwnerPropertiesHandler{
		UoWFactory: factory,
		Inventory:  inventory,
		Limiter:    limiter,
	})
	queries.RegisterHandler(queryBus, bookingapp.ListOwnerBookingsKey, &bookingapp.ListOwnerBookingsHandler{
		UoWFactory: factory,
	})

	logger.Debug("buses ready", "commands", commandBus.Keys(), "queries", queryBus.Keys())

	validator := middleware.NewStructValidator()
	app.commands = middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(validator),
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Retry(cfg.RetryBackoff, logger),
		middleware.OutboxFlush(st.outbox, logger),
		middleware.Idempotency(st.idem, nil, cfg.IdempotencyTTL),
		middleware.Transaction(factory, nil),
	)
	app.queries = middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
	)

	app.handlers = ginserver.Handlers{
		Booking:       ginserver.BookingHandler{Commands: app.commands, Logger: logger},
		OwnerBooking:  ginserver.OwnerBookingHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Availability:  ginserver.AvailabilityHandler{Queries: app.queries, Logger: logger},
		OwnerProperty: ginserver.OwnerPropertyHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
	}
	return app, nil
}

// relay builds the outbox worker. Without brokers events are only logged.
func (a *application) relay() (*infraoutbox.Worker, func() error, error) {
	worker := &infraoutbox.Worker{
		Queue:       a.queue,
		Interval:    a.cfg.OutboxPollInterval,
		TopicPrefix: a.cfg.KafkaTopicPrefix,
		Backoff:     a.cfg.RetryBackoff,
		Logger:      a.logger,
		Wake:        a.wake,
	}
	if len(a.cfg.KafkaBrokers) == 0 {
		worker.Producer = infraoutbox.LogProducer{Logger: a.logger}
		return worker, func() error { return nil }, nil
	}
	producer, err := kafka.NewProducer(a.cfg.KafkaBrokers, sarama.NewConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	worker.Producer = producer
	return worker, producer.Close, nil
}

// cancellationConsumer listens for cancellation requests when brokers are configured.
func (a *application) cancellationConsumer() (*kafka.Consumer, error) {
	if len(a.cfg.KafkaBrokers) == 0 {
		return nil, nil
	}
	handler := kafka.CancellationHandler{Bus: a.commands, Inbox: a.inbox, Logger: a.logger}
	return kafka.NewConsumer(a.cfg.KafkaBrokers, a.cfg.KafkaGroupID, sarama.NewConfig(), handler, a.logger)
}

func (a *application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
