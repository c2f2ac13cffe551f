// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// CommunicationRecord is one row of the append-only delivery audit
// log. Exactly one record is written per send attempt, successful or
// not. Later webhook-style callbacks may advance the status but never
// revert it.
type CommunicationRecord struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64               `db:"id" json:"id"`
	EventID      string              `db:"event_id" json:"event_id"`
	GuestID      *string             `db:"guest_id" json:"guest_id,omitempty"`
	Channel      Channel             `db:"channel" json:"channel"`
	Recipient    string              `db:"recipient" json:"recipient"`
	TemplateID   *string             `db:"template_id" json:"template_id,omitempty"`
	Status       CommunicationStatus `db:"status" json:"status"`
	Provider     string              `db:"provider" json:"provider"`
	MessageID    *string             `db:"message_id" json:"message_id,omitempty"`
	ErrorMessage *string             `db:"error_message" json:"error_message,omitempty"`
	SentAt       *time.Time          `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt  *time.Time          `db:"delivered_at" json:"delivered_at,omitempty"`
	OpenedAt     *time.Time          `db:"opened_at" json:"opened_at,omitempty"`
	ClickedAt    *time.Time          `db:"clicked_at" json:"clicked_at,omitempty"`
	Metadata     *string             `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}

// CommunicationStats is the per-event aggregation consumed by the
// admin reporting screens.
type CommunicationStats struct {
	Total     int64 `db:"total" json:"total"`
	Sent      int64 `db:"sent" json:"sent"`
	Delivered int64 `db:"delivered" json:"delivered"`
	Opened    int64 `db:"opened" json:"opened"`
	Clicked   int64 `db:"clicked" json:"clicked"`
	Failed    int64 `db:"failed" json:"failed"`
	Bounced   int64 `db:"bounced" json:"bounced"`
}
