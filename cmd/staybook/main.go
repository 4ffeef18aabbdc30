package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staybook/internal/app/commands"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	listingapp "staybook/internal/app/handlers/listings"
	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	mongodb "staybook/internal/infra/db/mongo"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if cfg.PersistenceMode == "memory" {
		path := getenv("LISTINGS_FIXTURES", "")
		if path != "" {
			if err := loadListingFixtures(ctx, app.listings, path, cfg.Currency); err != nil {
				logger.Warn("listing fixtures load failed", "error", err, "path", path)
			}
		}
	}

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "persistence", cfg.PersistenceMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	listings     listings.Repository
	outboxWorker *infraoutbox.Worker
	producer     *kafka.Producer
	ready        func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		app         application
		factory     uow.UoWFactory
		outboxStore appoutbox.Outbox
	)

	switch cfg.PersistenceMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		listingsRepo := mongodb.NewListingRepository(client.DB)
		bookingRepo := mongodb.NewBookingRepository(client.DB)
		notifyStore := mongodb.NewNotificationStore(client.DB)
		factory = mongodb.Factory{
			DB:                client.DB,
			ListingsRepo:      listingsRepo,
			BookingRepo:       bookingRepo,
			NotificationsRepo: notifyStore,
		}
		store := infraoutbox.NewStore(client.DB)
		outboxStore = store
		app.listings = listingsRepo
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return application{}, fmt.Errorf("kafka producer: %w", err)
			}
			app.producer = producer
			app.outboxWorker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		} else {
			logger.Warn("no kafka brokers configured, outbox events will stay queued")
		}
	default:
		listingsRepo := memory.NewListingRepository()
		bookingRepo := memory.NewBookingRepository()
		notifyStore := memory.NewNotificationStore()
		factory = &memory.Factory{
			ListingsRepo:      listingsRepo,
			BookingRepo:       bookingRepo,
			NotificationsRepo: notifyStore,
		}
		outboxStore = memory.NewOutbox()
		app.listings = listingsRepo
		app.ready = func() error { return nil }
	}

	idStore := memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: factory,
		Outbox:     outboxStore,
		Encoder:    encoder,
		TaxRate:    cfg.TaxRate,
	})
	commands.RegisterHandler(commandBus, bookingapp.ConfirmBookingCommand{}.Key(), &bookingapp.ConfirmBookingHandler{
		UoWFactory: factory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: factory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, listingapp.RemoveListingCommand{}.Key(), &listingapp.RemoveListingHandler{
		UoWFactory: factory,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsQuery{}.Key(), &bookingapp.ListGuestBookingsHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, availabilityapp.ListingBookingsQuery{}.Key(), &availabilityapp.ListingBookingsHandler{UoWFactory: factory})

	commandsWithMW := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queriesWithMW := middleware.ChainQueries(queryBus)

	app.handlers = ginserver.Handlers{
		Booking:      ginserver.BookingHandler{Commands: commandsWithMW, Queries: queriesWithMW},
		Availability: ginserver.AvailabilityHandler{Queries: queriesWithMW},
		Me:           ginserver.MeHandler{Queries: queriesWithMW},
		Listing:      ginserver.ListingHandler{Commands: commandsWithMW},
	}
	return app, nil
}

func (a application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
}

type listingFixture struct {
	ID          string  `json:"id"`
	Owner       string  `json:"owner"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Line1       string  `json:"line1"`
	GuestsLimit int     `json:"guests_limit"`
	NightlyRate int64   `json:"nightly_rate"`
	Currency    string  `json:"currency"`
	State       string  `json:"state"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

func loadListingFixtures(ctx context.Context, repo listings.Repository, path, defaultCurrency string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	now := time.Now().UTC()
	for _, fx := range fixtures {
		currency := fx.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		rate, err := money.New(fx.NightlyRate, currency)
		if err != nil {
			return fmt.Errorf("fixture %s: %w", fx.ID, err)
		}
		state := listings.ListingState(fx.State)
		if state == "" {
			state = listings.ListingActive
		}
		listing := &listings.Listing{
			ID:          listings.ListingID(fx.ID),
			Owner:       listings.OwnerID(fx.Owner),
			Title:       fx.Title,
			Description: fx.Description,
			Address: listings.Address{
				Line1:   fx.Line1,
				City:    fx.City,
				Country: fx.Country,
				Lat:     fx.Lat,
				Lon:     fx.Lon,
			},
			GuestsLimit: fx.GuestsLimit,
			NightlyRate: rate,
			State:       state,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := listing.Validate(); err != nil {
			return fmt.Errorf("fixture %s: %w", fx.ID, err)
		}
		if err := repo.Save(ctx, listing); err != nil {
			return fmt.Errorf("fixture %s: %w", fx.ID, err)
		}
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
