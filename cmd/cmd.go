package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloom-backend/internal/config"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/migrations"
	"bloom-backend/internal/repository"
	"bloom-backend/internal/repository/memory"
	"bloom-backend/internal/repository/postgres"
	"bloom-backend/internal/services"
	"bloom-backend/internal/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Optional .env for local development
	_ = godotenv.Load()

	configPath := os.Getenv("BLOOM_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up tracing")
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Error().Err(err).Msg("Failed to flush traces")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStore()

	app, err := newApp(ctx, cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	go app.expirer.Run(ctx)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newRouter(app, cfg.Metrics),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("storage", cfg.Storage.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStore opens the configured storage backend
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, func(), error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	if cfg.Database.Migrate {
		if err := migrations.Up(cfg.Database.MigrationURL()); err != nil {
			return nil, nil, err
		}
		log.Info().Msg("Database migrations applied")
	}

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test database connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	return postgres.NewStore(db), db.Close, nil
}

// application holds the wired services and handlers' dependencies
type application struct {
	store     *repository.Store
	broker    *identity.Broker
	hub       *services.WSHub
	users     *services.UserService
	push      *services.PushService
	pairing   *services.PairingService
	questions *services.QuestionService
	journals  *services.JournalService
	posts     *services.PostService
	expirer   *services.RequestExpirer
}

func newApp(ctx context.Context, cfg *config.Config, store *repository.Store) (*application, error) {
	loc, err := time.LoadLocation(cfg.Questions.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	var objects services.ObjectStore
	if cfg.AWS.S3Bucket == "" {
		log.Warn().Msg("No S3 bucket configured; photos are kept in memory")
		objects = services.NewMemoryObjectStore()
	} else {
		objects, err = services.NewS3Store(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
	}

	apnsClient, err := services.NewAPNsClient(cfg.APNs)
	if err != nil {
		return nil, err
	}
	var pushClient services.APNsClient
	if apnsClient != nil {
		pushClient = apnsClient
	} else {
		log.Warn().Msg("APNs is not configured; push notifications are disabled")
	}

	resolver := identity.ContextResolver{}
	broker := identity.NewBroker()
	hub := services.NewWSHub()
	push := services.NewPushService(store.PushTokens, pushClient, cfg.APNs.Topic)
	notifier := services.Notifiers{hub, push}

	var summarizer services.Summarizer
	if cfg.OpenAI.APIKey != "" {
		summarizer = services.NewOpenAISummarizer(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, &http.Client{Timeout: 60 * time.Second})
	} else {
		log.Warn().Msg("OpenAI is not configured; journal summaries are disabled")
	}

	return &application{
		store:     store,
		broker:    broker,
		hub:       hub,
		users:     services.NewUserService(store.Users, broker, cfg.JWT.Secret, cfg.JWT.TTL),
		push:      push,
		pairing:   services.NewPairingService(resolver, store.CoupleRequests, notifier),
		questions: services.NewQuestionService(resolver, store.Couples, store.Questions, store.Answers, notifier, loc),
		journals:  services.NewJournalService(resolver, store.Journals, store.Couples, summarizer),
		posts:     services.NewPostService(resolver, store.Couples, store.Prompts, store.Posts, objects, cfg.AWS.MaxImageSide),
		expirer:   services.NewRequestExpirer(store.CoupleRequests, cfg.Pairing.RequestTTL, cfg.Pairing.SweepInterval),
	}, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
