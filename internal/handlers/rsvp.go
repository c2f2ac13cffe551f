// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/rsvp-service/internal/models"
	"github.com/labstack/echo/v4"
)

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	IsValid bool                 `json:"isValid"`
	Guest   *models.GuestContext `json:"guest,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// ValidateToken checks a presented token for the RSVP flow. An
// invalid or expired token is a normal business outcome and returns
// 200; only malformed input gets a non-2xx status.
func (h *Handlers) ValidateToken(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	result, err := h.tokens.Validate(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}

	if !result.Valid {
		return c.JSON(http.StatusOK, validateResponse{
			IsValid: false,
			Error:   string(result.Reason),
		})
	}
	return c.JSON(http.StatusOK, validateResponse{
		IsValid: true,
		Guest:   result.Guest,
	})
}

// MarkTokenUsed records that the guest submitted through this token.
// Informational only; the token stays usable until expiry or
// revocation. Idempotent.
func (h *Handlers) MarkTokenUsed(c echo.Context) error {
	tokenValue := c.Param("token")
	if tokenValue == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	if err := h.tokens.MarkUsed(c.Request().Context(), tokenValue); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
