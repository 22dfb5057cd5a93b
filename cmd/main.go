package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/accounts"
	"github.com/bilgisen/firenews/internal/api"
	"github.com/bilgisen/firenews/internal/auth"
	"github.com/bilgisen/firenews/internal/cache"
	"github.com/bilgisen/firenews/internal/config"
	"github.com/bilgisen/firenews/internal/feed"
	"github.com/bilgisen/firenews/internal/logger"
	"github.com/bilgisen/firenews/internal/mail"
	"github.com/bilgisen/firenews/internal/media"
	"github.com/bilgisen/firenews/internal/middleware"
	"github.com/bilgisen/firenews/internal/news"
	"github.com/bilgisen/firenews/internal/session"
	"github.com/bilgisen/firenews/internal/storage"
	"github.com/bilgisen/firenews/internal/storage/mongodb"
	"github.com/bilgisen/firenews/internal/storage/sqlite"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	// Initialize logger
	output := cfg.LogFile
	if output == "" {
		output = "stdout"
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: cfg.LogPretty,
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	// Lives as long as the process; event streams end with it.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open document store")
	}
	defer func() {
		log.Info().Msg("Closing document store...")
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing document store")
		}
	}()

	// Initialize cache (Redis when REDIS_URL is set)
	c, err := cache.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer func() {
		log.Info().Msg("Closing cache...")
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing cache")
		}
	}()

	uploader, err := media.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize media uploader")
	}
	if uploader == nil {
		log.Warn().Msg("MEDIA_DRIVER is none, image uploads are disabled")
	}
	mediaSvc := media.NewService(uploader, cfg.MaxFileSize)

	authSvc := auth.NewService(cfg, store, c, mail.New(cfg, logger.Component("mail")))
	if err := authSvc.SeedBootstrapAdmin(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to seed bootstrap admin")
	}

	// Change notifications fan out through Redis when several instances run.
	hub := feed.NewHub()
	var bus feed.Bus = feed.NewLocalBus(hub)
	if cfg.RedisURL != "" {
		bus = feed.NewCacheBus(c)
		bridge := feed.NewBridge(c, hub)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Change bridge stopped")
			}
		}()
	}

	enforcer, err := middleware.NewEnforcer(middleware.DefaultPolicies)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build access policy")
	}

	handlers := api.NewHandlers(ctx, api.Deps{
		Store:    store,
		Auth:     authSvc,
		Sessions: session.NewManager(store, authSvc, cfg.BootstrapAdminEmail),
		News: news.NewService(store, c, news.Options{
			DefaultImageURL:  cfg.DefaultImageURL,
			CategoryCountTTL: cfg.CategoryCountTTL,
		}),
		Accounts: accounts.NewService(store, authSvc, mediaSvc),
		Feed:     feed.New(store, hub, bus),
		Media:    mediaSvc,
	})

	// Create Fiber app with custom config. Streams are long-lived so
	// WriteTimeout stays unset.
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    int(cfg.MaxFileSize) + 1<<20,
		ErrorHandler: middleware.ErrorHandler,
	})

	// Setup API routes
	api.SetupRoutes(app, handlers, enforcer)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StoreDriver == config.StoreMongo {
		return mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return sqlite.Open(ctx, cfg.SQLitePath)
}
