// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/rsvp-service/internal/models"
)

// AppendCommunication inserts one audit row for a delivery attempt.
// The log is insert-only; there is no delete counterpart.
func (r *Repository) AppendCommunication(ctx context.Context, rec *models.CommunicationRecord) (*models.CommunicationRecord, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO communication_log
		 (event_id, guest_id, channel, recipient, template_id, status, provider,
		  message_id, error_message, sent_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EventID, rec.GuestID, rec.Channel, rec.Recipient, rec.TemplateID,
		rec.Status, rec.Provider, rec.MessageID, rec.ErrorMessage, rec.SentAt,
		rec.Metadata)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetCommunicationByID(ctx, id)
}

// GetCommunicationByID retrieves one audit row.
func (r *Repository) GetCommunicationByID(ctx context.Context, id int64) (*models.CommunicationRecord, error) {
	var rec models.CommunicationRecord
	if err := r.db.GetContext(ctx, &rec, `SELECT * FROM communication_log WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &rec, nil
}

// GetCommunicationByMessageID retrieves the audit row for a provider
// message id, used by the async status hook.
func (r *Repository) GetCommunicationByMessageID(ctx context.Context, messageID string) (*models.CommunicationRecord, error) {
	var rec models.CommunicationRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT * FROM communication_log WHERE message_id = ?`, messageID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &rec, nil
}

// UpdateDeliveryStatus applies an out-of-band status callback
// (delivered/opened/clicked). Only forward transitions are accepted;
// anything else is rejected so a record can never be reverted.
func (r *Repository) UpdateDeliveryStatus(ctx context.Context, messageID string, status models.CommunicationStatus, at time.Time) error {
	rec, err := r.GetCommunicationByMessageID(ctx, messageID)
	if err != nil {
		return err
	}
	if !models.StatusAdvances(rec.Status, status) {
		return fmt.Errorf("%w: %q -> %q for message %s", ErrStatusRegression, rec.Status, status, messageID)
	}

	var column string
	switch status {
	case models.StatusDelivered:
		column = "delivered_at"
	case models.StatusOpened:
		column = "opened_at"
	case models.StatusClicked:
		column = "clicked_at"
	case models.StatusSent:
		column = "sent_at"
	default:
		_, err = r.db.ExecContext(ctx,
			`UPDATE communication_log SET status = ? WHERE message_id = ?`, status, messageID)
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE communication_log SET status = ?, `+column+` = ? WHERE message_id = ?`,
		status, at, messageID)
	return err
}

// CommunicationStats aggregates the log for one event.
func (r *Repository) CommunicationStats(ctx context.Context, eventID string) (*models.CommunicationStats, error) {
	var stats models.CommunicationStats
	err := r.db.GetContext(ctx, &stats,
		`SELECT
		    COUNT(*) AS total,
		    COALESCE(SUM(CASE WHEN status IN ('sent', 'delivered', 'opened', 'clicked') THEN 1 ELSE 0 END), 0) AS sent,
		    COALESCE(SUM(CASE WHEN status IN ('delivered', 'opened', 'clicked') THEN 1 ELSE 0 END), 0) AS delivered,
		    COALESCE(SUM(CASE WHEN status IN ('opened', 'clicked') THEN 1 ELSE 0 END), 0) AS opened,
		    COALESCE(SUM(CASE WHEN status = 'clicked' THEN 1 ELSE 0 END), 0) AS clicked,
		    COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed,
		    COALESCE(SUM(CASE WHEN status = 'bounced' THEN 1 ELSE 0 END), 0) AS bounced
		 FROM communication_log WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListCommunicationsForEvent returns the audit rows for an event,
// newest first. Consumed by the admin reporting screens.
func (r *Repository) ListCommunicationsForEvent(ctx context.Context, eventID string) ([]models.CommunicationRecord, error) {
	var recs []models.CommunicationRecord
	err := r.db.SelectContext(ctx, &recs,
		`SELECT * FROM communication_log WHERE event_id = ? ORDER BY created_at DESC, id DESC`, eventID)
	if err != nil {
		return nil, err
	}
	return recs, nil
}
