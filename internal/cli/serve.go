package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/taskmate/internal/config"
	"github.com/msomdec/taskmate/internal/handler"
	"github.com/msomdec/taskmate/internal/repository/sqlite"
	"github.com/msomdec/taskmate/internal/service"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the taskmate backend server",
		Long: `Run the HTTP backend that stores identities, profiles and tasks in SQLite.

Settings come from the environment: JWT_SECRET (required, at least 32 characters),
PORT, DATABASE_PATH, BCRYPT_COST, TOKEN_TTL, SIGNIN_RATE and SIGNIN_BURST.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	cfg, err := config.LoadServer(os.Getenv)
	if err != nil {
		slog.Error("invalid server configuration", "error", err)
		return err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return err
	}
	defer db.Close()

	if err := db.Migrate(parent); err != nil {
		slog.Error("failed to run migrations", "error", err)
		return err
	}
	slog.Info("database migrations applied")

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authService := service.NewAuthService(db.Identities(), db.AuthSessions(), cfg.JWTSecret, cfg.BcryptCost, cfg.TokenTTL)
	limiter := service.NewTokenBucket(cfg.SigninRate, cfg.SigninBurst)
	go limiter.RunCleanup(ctx, 5*time.Minute, 10*time.Minute)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, limiter, db.Profiles(), db.Tasks())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		slog.Error("server error", "error", err)
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
