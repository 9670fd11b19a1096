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

	"github.com/spf13/cobra"

	"github.com/nirojbhetuwal/lostbuddy/internal/api"
	"github.com/nirojbhetuwal/lostbuddy/internal/auth"
	"github.com/nirojbhetuwal/lostbuddy/internal/imaging"
	"github.com/nirojbhetuwal/lostbuddy/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. A missing database is created on first start together
with an admin account whose password is printed once.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	if _, err := os.Stat(cfg.Database.Path); errors.Is(err, os.ErrNotExist) {
		password, err := initDatabase(cfg.Database.Path, cfg.Admin.Username, cfg.Admin.Email)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(cmd, cfg.Database.Path, cfg.Admin.Username, password)
		fmt.Fprintln(cmd.OutOrStdout())
	}

	ctx := context.Background()
	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("database ready", "path", cfg.Database.Path)

	jwtSecret, err := store.GetJWTSecret(ctx, a.db)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	router := api.NewRouter(api.Deps{
		DB:      a.db,
		Issuer:  auth.NewIssuer(jwtSecret, cfg.Server.TokenTTL),
		Finder:  a.finder,
		Claims:  a.claims,
		Photos:  imaging.NewProcessor(),
		Metrics: a.metrics,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.LoggingMiddleware(a.metrics)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-done

	slog.Info("server stopped, closing connections")
	return nil
}
