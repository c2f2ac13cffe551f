// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models contains the persisted types for the RSVP token
// lifecycle and the outbound communication audit log.
package models

// Channel identifies the transport a message goes out on.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// CommunicationStatus is the lifecycle state of a delivery attempt.
// Transitions are forward-only; a record never moves back to an
// earlier state.
type CommunicationStatus string

const (
	StatusPending   CommunicationStatus = "pending"
	StatusSent      CommunicationStatus = "sent"
	StatusDelivered CommunicationStatus = "delivered"
	StatusOpened    CommunicationStatus = "opened"
	StatusClicked   CommunicationStatus = "clicked"
	StatusFailed    CommunicationStatus = "failed"
	StatusBounced   CommunicationStatus = "bounced"
)

// statusRank orders statuses for the forward-only update check.
// failed and bounced are terminal; opened/clicked advance past
// delivered.
var statusRank = map[CommunicationStatus]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusOpened:    3,
	StatusClicked:   4,
	StatusFailed:    5,
	StatusBounced:   5,
}

// StatusAdvances reports whether moving from to next is an additive,
// forward transition.
func StatusAdvances(from, to CommunicationStatus) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}
