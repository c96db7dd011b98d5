// Puzzle Labs - live behavioral puzzle-trial server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/puzzle-labs/internal/api"
	"github.com/ashureev/puzzle-labs/internal/config"
	"github.com/ashureev/puzzle-labs/internal/export"
	"github.com/ashureev/puzzle-labs/internal/game"
	"github.com/ashureev/puzzle-labs/internal/identity"
	"github.com/ashureev/puzzle-labs/internal/middleware"
	"github.com/ashureev/puzzle-labs/internal/puzzle"
	"github.com/ashureev/puzzle-labs/internal/round"
	"github.com/ashureev/puzzle-labs/internal/store"
	"github.com/ashureev/puzzle-labs/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// One server run is one experiment session; the code tags export rows.
	sessionCode := uuid.New().String()[:8]

	slog.Info("Starting server",
		"port", cfg.Port,
		"variant", cfg.Experiment.Variant,
		"session_code", sessionCode,
		"dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	variant, err := puzzle.New(cfg.Experiment.Variant, cfg.Experiment.MatrixWidth, cfg.Experiment.MatrixHeight)
	if err != nil {
		slog.Error("Failed to initialize puzzle variant", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	engine := game.NewEngine(repo, variant, puzzle.NewSVGRenderer(), cfg.Experiment, clock)

	apiHandler := api.NewHandler(repo, cfg.Experiment)
	wsHandler := game.NewWebSocketHandler(engine, cfg.FrontendURL, cfg.IsDevelopment())
	exportHandler := export.NewHandler(repo)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, sessionCode, cfg.Experiment.Variant, cfg.IsDevelopment()))

	apiHandler.RegisterRoutes(r)

	r.Get("/export/trials.csv", exportHandler.ServeHTTP)

	// Live protocol endpoint.
	r.Get("/ws/game", wsHandler.ServeHTTP)

	// Embedded game page.
	r.Handle("/*", web.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // live websocket connections stay open for the whole round
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	round.StartSweeper(ctx, repo, clock, cfg.Experiment.GameDuration)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
