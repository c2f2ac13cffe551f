// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/oliverandrich/rsvp-service/internal/services/token"
	"github.com/labstack/echo/v4"
)

type issueRequest struct {
	GuestID string `json:"guest_id"`
	TTLDays int    `json:"ttl_days"`
}

type issueResponse struct {
	GuestID   string    `json:"guest_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url"`
}

// IssueToken creates a fresh token for a guest, superseding any
// active one.
func (h *Handlers) IssueToken(c echo.Context) error {
	var req issueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.GuestID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "guest_id is required")
	}

	tok, err := h.tokens.Issue(c.Request().Context(), req.GuestID, req.TTLDays)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, issueResponse{
		GuestID:   tok.GuestID,
		Token:     tok.Token,
		ExpiresAt: tok.ExpiresAt,
		URL:       token.RSVPURL(h.baseURL, tok.Token),
	})
}

type issueBatchRequest struct {
	GuestIDs []string `json:"guest_ids"`
	TTLDays  int      `json:"ttl_days"`
}

// IssueTokenBatch issues tokens for several guests with partial
// success: each guest gets its own result entry.
func (h *Handlers) IssueTokenBatch(c echo.Context) error {
	var req issueBatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.GuestIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "guest_ids is required")
	}

	results := h.tokens.IssueBatch(c.Request().Context(), req.GuestIDs, req.TTLDays)
	return c.JSON(http.StatusOK, results)
}

type revokeRequest struct {
	Token string `json:"token"`
}

// RevokeToken deactivates a token. Idempotent.
func (h *Handlers) RevokeToken(c echo.Context) error {
	var req revokeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	if err := h.tokens.Revoke(c.Request().Context(), req.Token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CleanupTokens sweeps active-but-expired tokens. Cadence is decided
// by the external scheduler calling this endpoint.
func (h *Handlers) CleanupTokens(c echo.Context) error {
	count, err := h.tokens.CleanupExpired(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"deactivated": count})
}
