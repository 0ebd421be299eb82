package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkhalitov/bracket-engine/brackets"
	"github.com/dkhalitov/bracket-engine/config"
	"github.com/dkhalitov/bracket-engine/db"
	"github.com/dkhalitov/bracket-engine/handlers"
	"github.com/dkhalitov/bracket-engine/middleware"
	"github.com/dkhalitov/bracket-engine/repositories"
	api "github.com/dkhalitov/bracket-engine/routes"
	"github.com/dkhalitov/bracket-engine/services"
	"github.com/dkhalitov/bracket-engine/storage"
)

const schedulerInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// Snapshot archival is optional; without a bucket, completion simply
	// skips the archive step.
	var archiver storage.FileUploader
	if cfg.ArchiveBucketName != "" {
		archiver, err = storage.NewS3Archive(storage.S3ArchiveConfig{
			Endpoint:        cfg.ArchiveEndpoint,
			Region:          cfg.ArchiveRegion,
			AccessKeyID:     cfg.ArchiveAccessKeyID,
			SecretAccessKey: cfg.ArchiveSecretAccessKey,
			BucketName:      cfg.ArchiveBucketName,
			PublicBaseURL:   cfg.ArchivePublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize snapshot archive", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("snapshot archive initialized", slog.String("bucket", cfg.ArchiveBucketName))
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	notifier := brackets.NewHubNotifier(wsHub)

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	matchupRepo := repositories.NewPostgresMatchupRepository(dbConn)
	reportRepo := repositories.NewPostgresScoreReportRepository(dbConn)

	bracketService := services.NewBracketService(tournamentRepo, rosterRepo, matchupRepo, notifier, logger)
	resultService := services.NewResultService(matchupRepo, tournamentRepo, notifier, logger)
	reportService := services.NewReportService(reportRepo, matchupRepo, tournamentRepo, resultService, logger)
	roundService := services.NewRoundService(tournamentRepo, rosterRepo, matchupRepo, notifier, logger)
	tournamentService := services.NewTournamentService(
		tournamentRepo, rosterRepo, matchupRepo, bracketService, archiver, notifier, logger)
	logger.Info("services initialized")

	// Completion scheduler: finished single-elimination tournaments get
	// closed out without waiting for an organizer.
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("auto-completion scheduler started", slog.Duration("interval", schedulerInterval))
		for range ticker.C {
			if err := tournamentService.AutoCompleteFinishedTournaments(context.Background()); err != nil {
				logger.Error("scheduler run failed", slog.Any("error", err))
			}
		}
	}()

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := api.InitRoutes(api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService, bracketService, roundService, logger),
		Match:      handlers.NewMatchHandler(resultService, logger),
		Report:     handlers.NewReportHandler(reportService, logger),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, tournamentService, logger),
	}, auth)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
