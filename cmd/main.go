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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/playvora/arena-engine/brackets"
	"github.com/playvora/arena-engine/config"
	"github.com/playvora/arena-engine/db"
	"github.com/playvora/arena-engine/handlers"
	"github.com/playvora/arena-engine/middleware"
	"github.com/playvora/arena-engine/repositories"
	api "github.com/playvora/arena-engine/routes"
	"github.com/playvora/arena-engine/services"
	"github.com/playvora/arena-engine/storage"
)

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

	// Proof uploads are optional: without R2 credentials the upload endpoint
	// reports 503 and captains must pass an external proof URL.
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	}

	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	txManager := repositories.NewTxManager(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	auditRepo := repositories.NewPostgresAuditLogRepository(dbConn)
	statsRepo := repositories.NewPostgresStatsRepository(dbConn)
	logger.Info("repositories initialized")

	auditRecorder := services.NewAuditRecorder(auditRepo, logger)
	statsService := services.NewStatsService(statsRepo, logger)
	advancementService := services.NewAdvancementService(matchRepo, tournamentRepo, statsService, auditRecorder, wsHub, logger)
	aggregateService := services.NewAggregateService(matchRepo, advancementService, auditRecorder, logger)
	matchService := services.NewMatchService(
		txManager,
		matchRepo,
		tournamentRepo,
		teamRepo,
		advancementService,
		aggregateService,
		statsService,
		auditRecorder,
		wsHub,
		logger,
	)
	groupService := services.NewGroupService(txManager, tournamentRepo, registrationRepo, wsHub, logger)
	bracketService := services.NewBracketService(txManager, matchRepo, tournamentRepo, registrationRepo, wsHub, logger)
	logger.Info("services initialized")

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	matchHandler := handlers.NewMatchHandler(matchService, auditRecorder, uploader)
	bracketHandler := handlers.NewBracketHandler(bracketService)
	groupHandler := handlers.NewGroupHandler(groupService)
	statsHandler := handlers.NewStatsHandler(statsService)
	auditHandler := handlers.NewAuditHandler(auditRecorder)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		auth,
		matchHandler,
		bracketHandler,
		groupHandler,
		statsHandler,
		auditHandler,
		webSocketHandler,
	)
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
		logger.Info("server stopped gracefully")
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
		logger.Info("server stopped gracefully")
	}
}
