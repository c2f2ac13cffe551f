// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CommunicationStats aggregates the delivery log for one event.
// Consumed by the admin reporting screens.
func (h *Handlers) CommunicationStats(c echo.Context) error {
	eventID := c.Param("id")
	if eventID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event id is required")
	}

	stats, err := h.repo.CommunicationStats(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// ListCommunications returns the audit rows for one event, newest
// first.
func (h *Handlers) ListCommunications(c echo.Context) error {
	eventID := c.Param("id")
	if eventID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event id is required")
	}

	recs, err := h.repo.ListCommunicationsForEvent(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

// ListProviders reports the configured providers in failover order.
func (h *Handlers) ListProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"providers": h.registry.Names(),
	})
}

// ProviderHealth health-checks every configured provider.
func (h *Handlers) ProviderHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.VerifyAll(c.Request().Context()))
}
