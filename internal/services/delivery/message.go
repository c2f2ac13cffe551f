// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package delivery sends guest communication through an ordered list
// of configured providers with failover, and records every attempt in
// the communication log.
package delivery

import (
	"codeberg.org/oliverandrich/rsvp-service/internal/models"
)

// Message is one outbound email. Composition happens upstream; the
// dispatcher only substitutes variables and hands the message to a
// provider.
type Message struct { //nolint:govet // fieldalignment: readability over optimization
	To          string            `json:"to"`
	From        string            `json:"from,omitempty"`
	Subject     string            `json:"subject"`
	HTML        string            `json:"html,omitempty"`
	Text        string            `json:"text,omitempty"`
	ReplyTo     string            `json:"reply_to,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	TemplateID  *string           `json:"template_id,omitempty"`
	GuestID     *string           `json:"guest_id,omitempty"`
	EventID     string            `json:"event_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Attachment is an inline file attachment. Content is base64 in
// transit via encoding/json's []byte handling.
type Attachment struct {
	Filename    string `json:"filename"`
	Content     []byte `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

// Result describes the outcome of one send. Provider is the variant
// that succeeded, "none" when no provider was configured, or
// "fallback" when every configured provider failed.
type Result struct { //nolint:govet // fieldalignment: readability over optimization
	Success        bool                       `json:"success"`
	MessageID      string                     `json:"message_id,omitempty"`
	Provider       string                     `json:"provider"`
	Error          string                     `json:"error,omitempty"`
	DeliveryStatus models.CommunicationStatus `json:"delivery_status"`
}

const (
	// ProviderNone is reported when the registry is empty.
	ProviderNone = "none"
	// ProviderFallback is reported when all providers were exhausted.
	ProviderFallback = "fallback"
)
