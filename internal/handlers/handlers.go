// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers for token lifecycle,
// delivery and reporting.
package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/rsvp-service/internal/repository"
	"codeberg.org/oliverandrich/rsvp-service/internal/services/delivery"
	"codeberg.org/oliverandrich/rsvp-service/internal/services/token"
	"github.com/labstack/echo/v4"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo       *repository.Repository
	tokens     *token.Service
	dispatcher *delivery.Dispatcher
	registry   *delivery.Registry
	baseURL    string
}

// New creates a new Handlers instance.
func New(repo *repository.Repository, tokens *token.Service, dispatcher *delivery.Dispatcher, registry *delivery.Registry, baseURL string) *Handlers {
	return &Handlers{
		repo:       repo,
		tokens:     tokens,
		dispatcher: dispatcher,
		registry:   registry,
		baseURL:    baseURL,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
