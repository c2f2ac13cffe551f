// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/rsvp-service/internal/models"
)

// GetGuestByID reads one guest from the directory. Only the columns
// the RSVP flow needs are selected; administrative fields stay with
// the guest-management side.
func (r *Repository) GetGuestByID(ctx context.Context, id string) (*models.Guest, error) {
	var guest models.Guest
	err := r.db.GetContext(ctx, &guest,
		`SELECT id, event_id, name, email, phone, side, relationship, plus_one_allowed
		 FROM guests WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &guest, nil
}

// CreateGuest inserts a guest row. Used by fixtures and the import
// flow; the guest directory itself is owned elsewhere.
func (r *Repository) CreateGuest(ctx context.Context, guest *models.Guest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guests (id, event_id, name, email, phone, side, relationship, plus_one_allowed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		guest.ID, guest.EventID, guest.Name, guest.Email, guest.Phone,
		guest.Side, guest.Relationship, guest.PlusOneAllowed)
	return err
}
