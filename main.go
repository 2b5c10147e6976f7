package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/carlist-be/internal/api"
	"github.com/isdelr/carlist-be/internal/auth"
	"github.com/isdelr/carlist-be/internal/config"
	"github.com/isdelr/carlist-be/internal/database"
	"github.com/isdelr/carlist-be/internal/logger"
	"github.com/isdelr/carlist-be/internal/messaging"
	"github.com/isdelr/carlist-be/internal/monitoring"
	"github.com/isdelr/carlist-be/internal/repository"
	"github.com/isdelr/carlist-be/internal/repository/mongo"
	"github.com/isdelr/carlist-be/internal/repository/sqlite"
	"github.com/isdelr/carlist-be/internal/services"
	"github.com/isdelr/carlist-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	ctx := context.Background()

	// Set up store
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to initialize store")
	}
	defer store.Close()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Optional event bus
	var publisher services.Publisher
	if cfg.NATSURL != "" {
		nc, err := messaging.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Close()
		publisher = nc
	}

	// Set up services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL())
	eventService := services.NewEventService(store.Events(), hub, publisher)
	authService := services.NewAuthService(store.Users(), auth.NewPasswordHasher(cfg.BcryptCost), tokens, eventService)
	listingService := services.NewListingService(store.Listings(), eventService)

	// Rate limiter for /register and /login
	var limiter api.RateLimiter
	if cfg.RedisURL != "" {
		rl, err := api.NewRedisRateLimiter(ctx, cfg.RedisURL, cfg.AuthRateLimit, cfg.RateLimitWindow)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis rate limiter")
		}
		limiter = rl
	} else {
		limiter = api.NewMemoryRateLimiter(cfg.AuthRateLimit, cfg.RateLimitWindow)
	}
	defer limiter.Close()

	// Set up and run the event retention scheduler
	scheduler, err := monitoring.NewScheduler(eventService, cfg.EventRetentionCron, cfg.EventRetention())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	go scheduler.Run()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		AuthService:    authService,
		ListingService: listingService,
		EventService:   eventService,
		Tokens:         tokens,
		Hub:            hub,
		Store:          store,
		Limiter:        limiter,
		Metrics:        api.NewMetrics(),
		CORSOrigins:    cfg.CORSOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("driver", cfg.StoreDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoTimeout)
		if err != nil {
			return nil, err
		}
		idxCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
		defer cancel()
		store, err := mongo.New(idxCtx, client, cfg.MongoDatabase)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return store, nil
	default:
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return sqlite.New(db), nil
	}
}
