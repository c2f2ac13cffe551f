// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and the HTTP
// surface together.
package server

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

	"codeberg.org/oliverandrich/rsvp-service/internal/config"
	"codeberg.org/oliverandrich/rsvp-service/internal/database"
	"codeberg.org/oliverandrich/rsvp-service/internal/handlers"
	"codeberg.org/oliverandrich/rsvp-service/internal/repository"
	"codeberg.org/oliverandrich/rsvp-service/internal/services/delivery"
	"codeberg.org/oliverandrich/rsvp-service/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Repository and services
	repo := repository.New(db)
	tokens := token.New(repo)
	registry := delivery.NewRegistry(&cfg.Providers)
	dispatcher := delivery.NewDispatcher(registry, repo, cfg.Delivery)

	slog.Info("delivery providers configured", "providers", registry.Names())

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e)
	setupRoutes(e, repo, tokens, dispatcher, registry, cfg.Server.BaseURL)

	return startWithGracefulShutdown(ctx, e, cfg)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, tokens *token.Service, dispatcher *delivery.Dispatcher, registry *delivery.Registry, baseURL string) {
	h := handlers.New(repo, tokens, dispatcher, registry, baseURL)

	e.GET("/health", h.Health)

	api := e.Group("/api")

	// Token lifecycle
	api.POST("/tokens", h.IssueToken)
	api.POST("/tokens/batch", h.IssueTokenBatch)
	api.POST("/tokens/revoke", h.RevokeToken)
	api.POST("/tokens/cleanup", h.CleanupTokens)

	// RSVP flow
	api.POST("/rsvp/validate", h.ValidateToken)
	api.POST("/rsvp/:token/used", h.MarkTokenUsed)

	// Delivery
	api.POST("/messages", h.SendMessage)
	api.POST("/messages/bulk", h.SendMessageBulk)
	api.PATCH("/messages/:id/status", h.UpdateMessageStatus)

	// Reporting
	api.GET("/events/:id/communications", h.ListCommunications)
	api.GET("/events/:id/communications/stats", h.CommunicationStats)
	api.GET("/providers", h.ListProviders)
	api.GET("/providers/health", h.ProviderHealth)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server", "reason", ctx.Err())
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
