// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token implements the RSVP access-token lifecycle: issuing,
// validating, expiring and revoking guest links.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/rsvp-service/internal/models"
	"codeberg.org/oliverandrich/rsvp-service/internal/repository"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	// TokenLength is the number of random bytes per token value.
	TokenLength = 32
	// DefaultTTLDays is used when a caller passes a non-positive TTL.
	DefaultTTLDays = 30

	// maxGenerateAttempts bounds the retry-on-collision loop. With
	// 256-bit values a collision is not expected to happen in
	// practice.
	maxGenerateAttempts = 5
)

// Reason explains why a token failed validation.
type Reason string

const (
	ReasonNotFound    Reason = "not_found"
	ReasonDeactivated Reason = "deactivated"
	ReasonExpired     Reason = "expired"
)

// ValidationResult is the outcome of a token validation. Failures are
// values, not errors; only infrastructure problems surface as errors.
type ValidationResult struct {
	Valid  bool                 `json:"valid"`
	Reason Reason               `json:"reason,omitempty"`
	Guest  *models.GuestContext `json:"guest,omitempty"`
}

// BatchResult is the per-guest outcome of a batch issue.
type BatchResult struct {
	GuestID string `json:"guest_id"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Service issues and validates RSVP tokens.
type Service struct {
	repo *repository.Repository
	now  func() time.Time
}

// New creates a token service backed by the given repository.
func New(repo *repository.Repository) *Service {
	return NewWithClock(repo, time.Now)
}

// NewWithClock creates a token service with an injectable clock for
// deterministic expiry tests.
func NewWithClock(repo *repository.Repository, now func() time.Time) *Service {
	return &Service{repo: repo, now: now}
}

// Issue creates a fresh token for the guest, superseding any active
// one. The deactivate-then-insert runs in one transaction, so
// concurrent issues for the same guest never leave two active tokens.
func (s *Service) Issue(ctx context.Context, guestID string, ttlDays int) (*models.RSVPToken, error) {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	expiresAt := s.now().Add(time.Duration(ttlDays) * 24 * time.Hour)

	var lastErr error
	for range maxGenerateAttempts {
		value, err := generateValue()
		if err != nil {
			return nil, err
		}
		tok, err := s.repo.IssueToken(ctx, guestID, value, expiresAt)
		if err != nil {
			if isTokenCollision(err) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("issue token for guest %s: %w", guestID, err)
		}
		return tok, nil
	}
	return nil, fmt.Errorf("issue token for guest %s: exhausted %d attempts: %w", guestID, maxGenerateAttempts, lastErr)
}

// IssueBatch issues one token per guest with partial-success
// semantics; one guest's failure does not abort the batch. The result
// slice matches the input order.
func (s *Service) IssueBatch(ctx context.Context, guestIDs []string, ttlDays int) []BatchResult {
	results := make([]BatchResult, 0, len(guestIDs))
	for _, guestID := range guestIDs {
		res := BatchResult{GuestID: guestID}
		tok, err := s.Issue(ctx, guestID, ttlDays)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Token = tok.Token
		}
		results = append(results, res)
	}
	return results
}

// Revoke deactivates the given token value. Idempotent; revoking an
// unknown or already revoked token is a no-op.
func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.repo.DeactivateToken(ctx, token)
}

// Regenerate issues a fresh token for the guest. The previous token
// is always superseded, same as Issue.
func (s *Service) Regenerate(ctx context.Context, guestID string, ttlDays int) (*models.RSVPToken, error) {
	return s.Issue(ctx, guestID, ttlDays)
}

// Validate checks a presented token value. Checks run in a fixed
// order: existence, expiry, active flag. Expiry wins over the active
// flag so that repeat validations of a lazily-deactivated token keep
// returning the same reason. A used token keeps validating until
// expiry; guests revisit their link to edit a response.
func (s *Service) Validate(ctx context.Context, token string) (*ValidationResult, error) {
	row, err := s.repo.GetTokenByValue(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &ValidationResult{Valid: false, Reason: ReasonNotFound}, nil
		}
		return nil, fmt.Errorf("look up token: %w", err)
	}

	if row.Expired(s.now()) {
		if row.IsActive {
			if err := s.repo.DeactivateToken(ctx, token); err != nil {
				return nil, fmt.Errorf("deactivate expired token: %w", err)
			}
		}
		return &ValidationResult{Valid: false, Reason: ReasonExpired}, nil
	}

	if !row.IsActive {
		return &ValidationResult{Valid: false, Reason: ReasonDeactivated}, nil
	}

	guest, err := s.repo.GetGuestByID(ctx, row.GuestID)
	if err != nil {
		return nil, fmt.Errorf("load guest %s: %w", row.GuestID, err)
	}

	return &ValidationResult{Valid: true, Guest: models.ContextFor(guest)}, nil
}

// MarkUsed records the first use of a token. Informational only; the
// token stays active. Idempotent.
func (s *Service) MarkUsed(ctx context.Context, token string) error {
	return s.repo.MarkTokenUsed(ctx, token, s.now())
}

// CleanupExpired deactivates all active-but-expired tokens and
// returns the count. Cadence is decided by an external scheduler;
// expiry is also enforced lazily in Validate.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeactivateExpiredTokens(ctx, s.now())
}

// RSVPURL builds the guest-facing link for a token value.
func RSVPURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + "/rsvp/" + token
}

// generateValue returns a fresh random token value: 32 bytes from
// crypto/rand, hex encoded.
func generateValue() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// isTokenCollision reports whether an insert failed on the unique
// token index. The driver error code identifies the constraint class;
// the message narrows it to the token column, since the one-active
// partial index raises the same code.
func isTokenCollision(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(err.Error(), "rsvp_tokens.token")
}
