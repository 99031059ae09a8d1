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

	"github.com/UrThings/cs-ufe/brackets"
	"github.com/UrThings/cs-ufe/config"
	"github.com/UrThings/cs-ufe/db"
	"github.com/UrThings/cs-ufe/handlers"
	"github.com/UrThings/cs-ufe/repositories"
	api "github.com/UrThings/cs-ufe/routes"
	"github.com/UrThings/cs-ufe/services"
	"github.com/UrThings/cs-ufe/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

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

	if err := db.RunMigrations(dbConn, cfg.MigrationsDir); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied", slog.String("dir", cfg.MigrationsDir))

	// Хранилище логотипов опционально: без него загрузка отключена,
	// остальное API работает.
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
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
	} else {
		logger.Warn("R2 storage is not configured, logo uploads are disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	memberRepo := repositories.NewPostgresTeamMemberRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	settingsRepo := repositories.NewPostgresSettingsRepository(dbConn)
	joinRequestRepo := repositories.NewPostgresJoinRequestRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)

	txRunner := db.NewTxRunner(dbConn, logger)

	authService := services.NewAuthService(userRepo)
	teamService := services.NewTeamService(teamRepo, memberRepo, txRunner, uploader)
	settingsService := services.NewSettingsService(settingsRepo, tournamentRepo, participantRepo, txRunner)
	tournamentService := services.NewTournamentService(tournamentRepo, settingsRepo, participantRepo, matchRepo, txRunner, uploader)
	bracketService := services.NewBracketService(tournamentRepo, participantRepo, matchRepo, settingsRepo, txRunner, wsHub, logger, nil)
	matchService := services.NewMatchService(matchRepo, tournamentRepo, settingsRepo, bracketService, txRunner, wsHub)
	registrationService := services.NewRegistrationService(joinRequestRepo, participantRepo, tournamentRepo, teamRepo, settingsRepo, matchRepo, txRunner, wsHub, logger)
	dashboardService := services.NewDashboardService(teamRepo, tournamentRepo, matchRepo)

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	teamHandler := handlers.NewTeamHandler(teamService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, settingsService, bracketService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	matchHandler := handlers.NewMatchHandler(matchService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		cfg.CORSAllowedOrigins,
		authHandler,
		teamHandler,
		tournamentHandler,
		registrationHandler,
		matchHandler,
		dashboardHandler,
		webSocketHandler,
	)

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
	}
	logger.Info("application exited")
}
