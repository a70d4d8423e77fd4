// @title Rideshare Backend API
// @version 1.0
// @description Trip ledger, presence and messaging API for the rideshare app
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "RIDESHARE_BACK-END/docs" // This is required for swagger
	"RIDESHARE_BACK-END/internal/config"
	"RIDESHARE_BACK-END/internal/handlers"
	"RIDESHARE_BACK-END/internal/ledger"
	"RIDESHARE_BACK-END/internal/middleware"
	"RIDESHARE_BACK-END/internal/mq"
	"RIDESHARE_BACK-END/internal/obs"
	"RIDESHARE_BACK-END/internal/payment"
	"RIDESHARE_BACK-END/internal/presence"
	mongostore "RIDESHARE_BACK-END/internal/repository/mongo"
	"RIDESHARE_BACK-END/internal/repository/postgres"
	"RIDESHARE_BACK-END/internal/routes"
	"RIDESHARE_BACK-END/internal/utils"
)

const notificationQueue = "trip.notifications"

type tripStore interface {
	ledger.Store
	handlers.Pinger
}

// logOutput receives the structured log.
var logOutput io.Writer = os.Stderr

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, nil))
}

func main() {
	logger := newLogger(logOutput)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Endpoint != "" {
		shutdown, err := obs.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
		logger.Info("tracing enabled", "endpoint", cfg.Telemetry.Endpoint)
	}

	pool, err := postgres.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	users := postgres.NewUserStore(pool)
	notifications := postgres.NewNotificationStore(pool)
	messages := postgres.NewMessageStore(pool)
	conversations := postgres.NewConversationStore(pool)
	reviews := postgres.NewReviewStore(pool)

	var trips tripStore
	switch cfg.Server.TripStore {
	case config.TripStoreMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		store := mongostore.NewTripStore(client, cfg.Mongo.Database)
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		trips = store
	default:
		trips = postgres.NewTripStore(pool)
	}
	logger.Info("trip store ready", "backend", cfg.Server.TripStore)

	var mailer utils.Mailer
	if cfg.IsEmailConfigured() {
		mailer = utils.NewEmailService(&cfg.Email)
	}
	notifier := handlers.NewTripNotifier(notifications, users, mailer, logger)

	// With a broker, the ledger publishes to RabbitMQ and the notifier
	// consumes from it; otherwise the notifier is called in-process.
	var pub ledger.Publisher = notifier
	if cfg.IsBrokerConfigured() {
		publisher, err := mq.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			return err
		}
		defer publisher.Close()

		consumer, err := mq.NewConsumer(cfg.Broker.URL, cfg.Broker.Exchange, notificationQueue,
			[]string{mq.TripEventsBinding}, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx, notifier); err != nil {
				logger.Error("trip event consumer stopped", "error", err)
			}
		}()
		pub = publisher
	}

	svc := ledger.NewService(trips, pub, logger)
	router := presence.NewRouter(logger)

	var charger payment.Charger
	if cfg.IsPaymentConfigured() {
		omise, err := payment.NewOmiseCharger(cfg.Payment.OmisePublicKey, cfg.Payment.OmiseSecretKey)
		if err != nil {
			return err
		}
		charger = omise
	}

	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(users, svc, &cfg.JWT, logger),
		Health:        handlers.NewHealthHandler(map[string]handlers.Pinger{"db": pool, "trips": trips}),
		Users:         handlers.NewUsersHandler(users, svc, logger),
		Reviews:       handlers.NewReviewsHandler(reviews, users, logger),
		Trips:         handlers.NewTripsHandler(svc, logger),
		Notifications: handlers.NewNotificationsHandler(notifications, logger),
		Messages:      handlers.NewMessagesHandler(messages, conversations, logger),
		Conversations: handlers.NewConversationsHandler(conversations, users, logger),
		Payments:      handlers.NewPaymentsHandler(svc, charger, cfg.Payment.Currency, logger),
		Socket:        handlers.NewSocketHandler(router, &cfg.JWT, cfg.CORS.AllowedOrigins, logger),
	}
	if cfg.IsGoogleOAuthConfigured() {
		h.Google = handlers.NewGoogleAuthHandler(users, cfg, logger)
	}
	mux := routes.SetupRoutes(h, &cfg.JWT)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
	})

	var handler http.Handler = c.Handler(mux)
	handler = middleware.RequestLogger(logger)(handler)
	handler = otelhttp.NewHandler(handler, "http.server")

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
