package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nebula-backend/internal/api"
	"nebula-backend/internal/attachments"
	"nebula-backend/internal/config"
	"nebula-backend/internal/crypto"
	"nebula-backend/internal/dispatch"
	"nebula-backend/internal/handlers"
	"nebula-backend/internal/logger"
	"nebula-backend/internal/notify"
	"nebula-backend/internal/recorder"
	"nebula-backend/internal/services"
	"nebula-backend/internal/store"
	"nebula-backend/internal/store/memory"
	"nebula-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := logger.New("nebula-backend", "development", "info")
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.ServiceName, cfg.Environment, cfg.LogLevel)
	log.Info().Bool("env_file", cfg.EnvFileLoaded).Msg("starting Nebula backend")

	// 2. Initialize Storage
	db, closeDB := openStore(cfg, log)
	defer closeDB()

	var slots store.SlotStore = db
	if len(cfg.StorageEncryptionKey) > 0 {
		sealer, err := crypto.NewSealer(cfg.StorageEncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create slot sealer")
		}
		slots = store.NewSealed(db, sealer)
		log.Info().Msg("persisted slots are encrypted at rest")
	}

	// 3. Initialize Services
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.SlackAlertWebhookURL != "" {
		notifier = notify.Multi{notifier, notify.NewSlackNotifier(cfg.SlackAlertWebhookURL)}
		log.Info().Msg("send failures are mirrored to Slack")
	}

	encoder := attachments.NewEncoder(cfg.MaxAttachmentBytes)
	dispatcher := dispatch.NewClient(cfg.WebhookURL, cfg.WebhookTimeout, nil, log)
	log.Info().Str("webhook_url", dispatcher.URL()).Dur("timeout", cfg.WebhookTimeout).Msg("webhook client initialized")

	authService := services.NewAuthService(db, cfg, log)
	chatService := services.NewChatService(slots, dispatcher, notifier, encoder, log)
	recordingService := services.NewRecordingService(chatService, services.RecordingOptions{
		Device:      recorder.UploadDevice{Mime: recorder.DefaultMimeType, Enabled: cfg.AudioEnabled},
		Encoder:     encoder,
		MaxDuration: cfg.MaxRecordingDuration,
	}, log)
	preferencesService := services.NewPreferencesService(slots)
	calendarService := services.NewCalendarService(slots, time.Local, log)
	musicService := services.NewMusicService(slots, log)
	videoService := services.NewVideoService(slots, log)

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		AuthHandler:     handlers.NewAuthHandler(authService, log),
		ChatHandler:     handlers.NewChatHandlers(chatService, recordingService, cfg.MaxAttachmentBytes, log),
		SettingsHandler: handlers.NewSettingsHandlers(preferencesService, log),
		ToolsHandler:    handlers.NewToolsHandlers(calendarService, musicService, videoService, log),
		Config:          cfg,
		Logger:          log,
	})

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A send waits for the webhook before answering.
		WriteTimeout: cfg.WebhookTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", cfg.HTTPPort).Msg("could not listen")
		}
	}()

	<-stopChan
	log.Info().Msg("shutdown signal received, draining connections")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	log.Info().Msg("server shutdown complete")
}

// openStore returns the account and slot store selected by DATABASE_URL and
// a function releasing it.
func openStore(cfg *config.Config, log zerolog.Logger) (store.Store, func()) {
	if cfg.UsesMemoryStore() {
		log.Warn().Msg("DATABASE_URL is memory://, data is lost on restart")
		return memory.NewStore(), func() {}
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create database connection pool")
	}
	if err := dbpool.Ping(dbCtx); err != nil {
		dbpool.Close()
		log.Fatal().Err(err).Msg("unable to ping database")
	}

	pgStore := postgres.NewPostgresStore(dbpool, log)
	if err := pgStore.EnsureSchema(dbCtx); err != nil {
		dbpool.Close()
		log.Fatal().Err(err).Msg("unable to apply database schema")
	}
	log.Info().Msg("postgres store initialized")
	return pgStore, dbpool.Close
}
