package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/draftdesk/internal/api"
	"github.com/bilgisen/draftdesk/internal/cache"
	"github.com/bilgisen/draftdesk/internal/config"
	"github.com/bilgisen/draftdesk/internal/dashboard"
	"github.com/bilgisen/draftdesk/internal/drafts"
	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/bilgisen/draftdesk/internal/middleware"
	"github.com/bilgisen/draftdesk/internal/storage"
	"github.com/bilgisen/draftdesk/internal/upstream"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

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
	log.Info().
		Str("env", cfg.Env).
		Str("upstream", cfg.UpstreamBaseURL).
		Msg("Starting draft dashboard...")

	// Approval journal
	var journal cache.Journal
	if cfg.RedisURL != "" {
		journal, err = cache.NewRedisJournal(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis journal")
		}
	} else {
		log.Info().Msg("REDIS_URL not set, keeping approvals in memory")
		journal = cache.NewMemoryJournal()
	}
	defer func() {
		log.Info().Msg("Closing approval journal...")
		if err := journal.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing approval journal")
		}
	}()

	// Approved draft archive. Only the file archive can be listed.
	var (
		archive storage.Archiver
		lister  storage.Lister
	)
	if r2 := cfg.R2(); r2.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		archive, err = storage.NewR2Archive(ctx, r2)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 archive")
		}
	} else {
		files, err := storage.NewFileArchive(cfg.ArchivePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize archive")
		}
		archive, lister = files, files
	}

	normalizer := drafts.NewNormalizer(drafts.WithDefaults(cfg.DraftDefaults()))
	client := upstream.NewClient(cfg.Upstream(), normalizer)

	controller := dashboard.NewController(client, dashboard.Options{
		Journal:     journal,
		JournalTTL:  cfg.JournalTTL,
		Archive:     archive,
		ReloadDelay: cfg.ReloadDelay,
	})

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.HTTPTimeout,
		WriteTimeout:          cfg.HTTPTimeout + cfg.UpstreamTimeout + cfg.ReloadDelay,
		IdleTimeout:           120 * time.Second,
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: cfg.Env == "production",
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	// Setup routes
	handlers := api.NewHandlers(controller, client, journal, lister)
	api.SetupRoutes(app, handlers, cfg)

	// Initial load, so the first page view has data
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout*2)
		defer cancel()
		controller.Load(ctx)
		status := controller.CheckConnection(ctx)
		log.Info().Str("connection", string(status)).Msg("Initial load finished")
	}()

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

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Shutdown the server
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
