// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/rsvp-service/internal/models"
)

// InsertToken stores a new token row. The unique index on token makes
// a value collision surface as an insert error, which the issuer
// handles by regenerating.
func (r *Repository) InsertToken(ctx context.Context, guestID, token string, expiresAt time.Time) (*models.RSVPToken, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rsvp_tokens (guest_id, token, expires_at, is_active) VALUES (?, ?, ?, 1)`,
		guestID, token, expiresAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetTokenByID(ctx, id)
}

// IssueToken atomically deactivates any active tokens for the guest
// and inserts the new one. The immediate transaction serializes
// concurrent issues for the same guest, so two active tokens can
// never coexist.
func (r *Repository) IssueToken(ctx context.Context, guestID, token string, expiresAt time.Time) (*models.RSVPToken, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin issue transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE rsvp_tokens SET is_active = 0 WHERE guest_id = ? AND is_active = 1`,
		guestID); err != nil {
		return nil, fmt.Errorf("deactivate previous tokens: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO rsvp_tokens (guest_id, token, expires_at, is_active) VALUES (?, ?, ?, 1)`,
		guestID, token, expiresAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var row models.RSVPToken
	if err := tx.GetContext(ctx, &row, `SELECT * FROM rsvp_tokens WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit issue transaction: %w", err)
	}
	return &row, nil
}

// GetTokenByID retrieves a token row by primary key.
func (r *Repository) GetTokenByID(ctx context.Context, id int64) (*models.RSVPToken, error) {
	var row models.RSVPToken
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM rsvp_tokens WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &row, nil
}

// GetTokenByValue retrieves a token row by its opaque value.
func (r *Repository) GetTokenByValue(ctx context.Context, token string) (*models.RSVPToken, error) {
	var row models.RSVPToken
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM rsvp_tokens WHERE token = ?`, token); err != nil {
		return nil, wrapError(err)
	}
	return &row, nil
}

// TokenValueExists checks whether a token value is already taken.
func (r *Repository) TokenValueExists(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM rsvp_tokens WHERE token = ?`, token); err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeactivateToken sets is_active=false for the given token value.
// Idempotent; deactivating an already inactive token is a no-op.
func (r *Repository) DeactivateToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE rsvp_tokens SET is_active = 0 WHERE token = ?`, token)
	return err
}

// MarkTokenUsed records the first use of a token. The used_at guard
// makes repeated calls keep the original timestamp.
func (r *Repository) MarkTokenUsed(ctx context.Context, token string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE rsvp_tokens SET used_at = ? WHERE token = ? AND used_at IS NULL`,
		usedAt, token)
	return err
}

// DeactivateExpiredTokens sweeps all active tokens whose TTL has
// passed and returns how many were deactivated.
func (r *Repository) DeactivateExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rsvp_tokens SET is_active = 0 WHERE is_active = 1 AND expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActiveTokenForGuest returns the guest's current active token, or
// ErrNotFound if none exists.
func (r *Repository) ActiveTokenForGuest(ctx context.Context, guestID string) (*models.RSVPToken, error) {
	var row models.RSVPToken
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM rsvp_tokens WHERE guest_id = ? AND is_active = 1`, guestID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &row, nil
}
