// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import "context"

// Provider is one concrete transport/vendor capable of sending a
// message. The abstraction is deliberately uniform: the dispatcher
// iterates the registry and never branches on which variant it holds.
type Provider interface {
	// Name identifies the provider in results and the audit log.
	Name() string
	// Send delivers the message and returns the provider message id.
	// Errors wrapped as PermanentError stop the failover loop.
	Send(ctx context.Context, msg *Message) (string, error)
	// Verify performs a connectivity/credential health check.
	Verify(ctx context.Context) bool
}
