// Command kolomd serves the content store: it accepts published
// articles over HTTP and exposes the paginated read API backed by
// Postgres.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Adda-Baaj/khobor-kolom/internal/config"
	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
	"github.com/Adda-Baaj/khobor-kolom/internal/server"
	"github.com/Adda-Baaj/khobor-kolom/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kolomd:", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintln(os.Stderr, "kolomd:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kolomd:", err)
		os.Exit(1)
	}

	err = run(cfg, log)
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Server.DatabaseURL)
	if err != nil {
		log.ErrorObj("database connect failed", "setup_error", map[string]any{"error": err.Error()})
		return err
	}
	defer pool.Close()

	st := store.New(pool, log)
	if err := st.Ensure(ctx); err != nil {
		log.ErrorObj("database migrate failed", "setup_error", map[string]any{"error": err.Error()})
		return err
	}

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		AllowOrigins: cfg.Server.AllowOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, st, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.ErrorObj("server failed", "server_error", map[string]any{"error": err.Error()})
			return err
		}
		return nil
	case <-quit:
	}

	log.InfoObj("shutting down", "server_stop", nil)
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorObj("shutdown failed", "server_error", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}
