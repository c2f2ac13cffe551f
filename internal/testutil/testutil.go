// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/rsvp-service/internal/database"
	"codeberg.org/oliverandrich/rsvp-service/internal/models"
	"codeberg.org/oliverandrich/rsvp-service/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// NewTestGuest creates a guest row in the directory.
func NewTestGuest(t *testing.T, repo *repository.Repository, id string) *models.Guest {
	t.Helper()
	email := fmt.Sprintf("%s@example.com", id)
	side := "bride"
	guest := &models.Guest{
		ID:             id,
		EventID:        "event-1",
		Name:           "Guest " + id,
		Email:          &email,
		Side:           &side,
		PlusOneAllowed: true,
	}
	err := repo.CreateGuest(context.Background(), guest)
	require.NoError(t, err)
	return guest
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
