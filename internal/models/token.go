// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// RSVPToken is one issued access token for a guest. Rows are never
// deleted; superseded and expired tokens stay around with
// is_active=false for auditing.
type RSVPToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64      `db:"id" json:"id"`
	GuestID   string     `db:"guest_id" json:"guest_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Expired reports whether the token's TTL has passed at the given
// instant.
func (t *RSVPToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Guest is the slice of the guest directory this service reads. The
// directory itself is owned by the guest-management side of the
// application.
type Guest struct { //nolint:govet // fieldalignment: readability over optimization
	ID             string  `db:"id" json:"id"`
	EventID        string  `db:"event_id" json:"event_id"`
	Name           string  `db:"name" json:"name"`
	Email          *string `db:"email" json:"email,omitempty"`
	Phone          *string `db:"phone" json:"phone,omitempty"`
	Side           *string `db:"side" json:"side,omitempty"`
	Relationship   *string `db:"relationship" json:"relationship,omitempty"`
	PlusOneAllowed bool    `db:"plus_one_allowed" json:"plus_one_allowed"`
	// Administrative fields (notes, import source, table assignment)
	// live on the guest-management side and are deliberately not
	// selected here.
}

// GuestContext is the minimal guest summary handed to the RSVP flow
// after a successful validation. It must not leak administrative
// fields.
type GuestContext struct {
	GuestID        string  `json:"guest_id"`
	EventID        string  `json:"event_id"`
	Name           string  `json:"name"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Side           *string `json:"side,omitempty"`
	Relationship   *string `json:"relationship,omitempty"`
	PlusOneAllowed bool    `json:"plus_one_allowed"`
}

// ContextFor builds the guest context exposed to the RSVP flow.
func ContextFor(g *Guest) *GuestContext {
	return &GuestContext{
		GuestID:        g.ID,
		EventID:        g.EventID,
		Name:           g.Name,
		Email:          g.Email,
		Phone:          g.Phone,
		Side:           g.Side,
		Relationship:   g.Relationship,
		PlusOneAllowed: g.PlusOneAllowed,
	}
}
