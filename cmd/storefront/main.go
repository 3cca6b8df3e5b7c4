package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/cafe-storefront/internal/account"
	"github.com/vasiliy-maslov/cafe-storefront/internal/backend"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
	"github.com/vasiliy-maslov/cafe-storefront/internal/config"
	"github.com/vasiliy-maslov/cafe-storefront/internal/db"
	handler "github.com/vasiliy-maslov/cafe-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/review"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
	"github.com/vasiliy-maslov/cafe-storefront/internal/transport"
)

const sweepInterval = 10 * time.Minute

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.Log, cfg.App.Name)

	log.Info().Msg("Storefront starting...")
	log.Debug().Str("backend", cfg.Backend.BaseURL).Str("session_store", cfg.Session.Store).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openSessionStore(ctx, cfg)
	defer closeStore()

	api := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	sessions := session.NewManager(store, cfg.Session.TTL)
	hub := order.NewHub(cfg.Tracker.AllowedOrigins...)

	catalogService := catalog.NewService(api)
	checkoutService := checkout.NewService(api, sessions)
	orderService := order.NewService(api, sessions)
	reviewService := review.NewService(api)
	accountService := account.NewService(api)

	router := transport.NewRouter(
		handler.NewSessionHandler(sessions),
		handler.NewMenuHandler(catalogService),
		handler.NewSelectionHandler(sessions, catalogService),
		handler.NewCartHandler(sessions),
		handler.NewCheckoutHandler(checkoutService),
		handler.NewOrderHandler(sessions, orderService, hub),
		handler.NewReviewHandler(sessions, reviewService),
		handler.NewAccountHandler(sessions, accountService),
		handler.NewLocationHandler(api),
	)

	go order.NewTracker(orderService, hub, cfg.Tracker.PollInterval).Run(ctx)
	go sweepSessions(ctx, sessions)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

func setupLogger(cfg config.LogConfig, service string) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", service).Logger()
}

// openSessionStore picks the configured store. The returned func releases it.
func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func()) {
	if cfg.Session.Store != config.StorePostgres {
		log.Info().Msg("Using in-memory session store")
		return session.NewMemoryStore(), func() {}
	}

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Str("host", cfg.Postgres.Host).Msg("Using postgres session store")
	return session.NewPostgresStore(pg.Pool), pg.Close
}

func sweepSessions(ctx context.Context, sessions *session.Manager) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("Session sweep failed")
			}
		}
	}
}
