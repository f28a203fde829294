package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/api"
	"chat-relay/infrastructure/postgres"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until SIGINT/SIGTERM.
// Returning instead of exiting lets the deferred closes run.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage, no listener is opened when it can't be reached
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	chatRepository, presenceRepository, closeStores, err := openStores(ctx, log, db, config)
	if err != nil {
		return err
	}
	defer closeStores()

	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewCollector(reg)

	// 4. Domain services
	pattern, err := config.IdentityRegexp()
	if err != nil {
		return err
	}
	moderator, err := newModerator(log, config)
	if err != nil {
		return err
	}
	validator := services.NewValidator(pattern, config.MaxIdentityLength)
	registry := runtime.NewRegistry(log)
	defer registry.Close()
	delivery := runtime.NewEventFanout(log, registry, metrics, config.SinkTimeout)
	sessions := services.NewSessionManager(log, chatRepository, delivery)
	relay := services.NewRelay(log, validator, sessions, chatRepository, delivery, moderator, metrics, config.MaxContentLength)
	presence := services.NewPresence(log, presenceRepository, delivery)
	dispatcher := services.NewDispatcher(log, validator, registry, delivery, sessions, relay, presence, metrics,
		services.Policy{
			OnlineOnRegister:    config.OnlineOnRegister,
			OfflineOnDisconnect: config.OfflineOnDisconnect,
		})

	// 5. Transport
	authenticator := auth.NewAuthenticator(config.AuthSecret, config.AuthTokenDuration)
	if !authenticator.Enabled() {
		log.Warn("AUTH_SECRET is empty, identities are taken from the X-User-ID header")
	}
	wsServer := websocket.NewServer(ctx, log, authenticator, dispatcher, websocket.Options{
		SendBufferSize:  config.ConnectionBufferSize,
		EventsPerSecond: config.EventsPerSecond,
		EventsBurst:     config.EventsBurst,
		WriteWait:       config.WriteWait,
		PongWait:        config.PongWait,
		MaxMessageSize:  config.MaxMessageSize,
	})
	deps := api.RouterDeps{
		Log:           log,
		Authenticator: authenticator,
		ChatService:   services.NewChatService(chatRepository, relay),
		Presence:      presence,
		Validator:     validator,
		WebSocket:     wsServer,
		Metrics:       observability.Handler(reg),
	}
	if config.DebugInspector {
		deps.Inspector = internal.NewInspector(log, db, nil, func() map[string]any {
			return map[string]any{"Connections": registry.Len(), "Time": time.Now().Format(time.RFC822)}
		})
	}
	server := &http.Server{
		Addr:              config.Address(),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Supervised workers, Run blocks until the signal
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewHTTPServerWorker(log, server, config.ShutdownTimeout),
		workers.NewHealthMonitoringWorker(log, registry, metrics, config.MetricInterval),
	)
	log.Info("Chat relay started", "address", config.Address(), "at", time.Now().UTC())
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

// openStores returns the PostgreSQL stores when DATABASE_URL is set, badger otherwise.
func openStores(ctx context.Context, log *slog.Logger, db *badger.DB, config internal.Config) (
	repositories.IChatRepository, repositories.IPresenceRepository, func(), error) {
	if config.DatabaseURL == "" {
		return repositories.NewChatRepository(db, log, config.LimitMessages),
			repositories.NewPresenceRepository(db), func() {}, nil
	}

	if err := postgres.RunMigrations(config.DatabaseURL); err != nil {
		return nil, nil, nil, err
	}
	sqlDB, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("Using PostgreSQL chat store")
	closeDB := func() {
		log.Info("Closing PostgreSQL...")
		_ = sqlDB.Close()
	}
	return postgres.NewChatStore(sqlDB, log, config.LimitMessages), postgres.NewPresenceStore(sqlDB), closeDB, nil
}

// newModerator returns a nil interface when moderation is off,
// a typed nil pointer would look enabled to the relay.
func newModerator(log *slog.Logger, config internal.Config) (services.Moderator, error) {
	if !config.Moderation {
		return nil, nil
	}
	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	data, err := runtime.NewCensoredLoader(nil).LoadAll(runtime.DefaultCensoredDir)
	if err != nil {
		return nil, fmt.Errorf("censored words loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(data.Words, censoredChar, log)
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return moderator, nil
}
