// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"context"
	"log/slog"

	"codeberg.org/oliverandrich/rsvp-service/internal/config"
)

// Registry is the ordered list of configured providers for an event.
// Order follows the configured priority: the first entry is the
// primary, the rest are failover candidates.
type Registry struct {
	providers []Provider
}

// defaultPriority is used when the configuration gives no order.
var defaultPriority = []string{"resend", "sendgrid", "gmail", "smtp"}

// NewRegistry builds a registry from the given provider configuration.
// A variant is included only if its required credentials are present;
// missing credentials exclude the provider silently, not as an error.
func NewRegistry(cfg *config.ProvidersConfig) *Registry {
	priority := cfg.Priority
	if len(priority) == 0 {
		priority = defaultPriority
	}

	r := &Registry{}
	for _, name := range priority {
		switch name {
		case "resend":
			if cfg.Resend.APIKey != "" {
				r.providers = append(r.providers, newResendProvider(&cfg.Resend, cfg.From, cfg.FromName))
			}
		case "sendgrid":
			if cfg.SendGrid.APIKey != "" {
				r.providers = append(r.providers, newSendGridProvider(&cfg.SendGrid, cfg.From, cfg.FromName))
			}
		case "gmail":
			if cfg.Gmail.ClientID != "" && cfg.Gmail.ClientSecret != "" && cfg.Gmail.RefreshToken != "" {
				r.providers = append(r.providers, newGmailProvider(&cfg.Gmail, cfg.From))
			}
		case "smtp":
			if cfg.SMTP.Host != "" && cfg.From != "" {
				r.providers = append(r.providers, newSMTPProvider(&cfg.SMTP, cfg.From, cfg.FromName))
			}
		default:
			slog.Warn("unknown provider in priority list", "provider", name)
		}
	}
	return r
}

// NewRegistryWith builds a registry from pre-constructed providers,
// keeping their order. Used for tests and custom wiring.
func NewRegistryWith(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Providers returns the ordered provider list.
func (r *Registry) Providers() []Provider {
	return r.providers
}

// Names returns the names of the configured providers in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// Empty reports whether no provider is configured.
func (r *Registry) Empty() bool {
	return len(r.providers) == 0
}

// ProviderHealth is one entry of a VerifyAll report.
type ProviderHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
}

// VerifyAll health-checks every configured provider in order.
func (r *Registry) VerifyAll(ctx context.Context) []ProviderHealth {
	report := make([]ProviderHealth, 0, len(r.providers))
	for _, p := range r.providers {
		report = append(report, ProviderHealth{
			Name:    p.Name(),
			Healthy: p.Verify(ctx),
		})
	}
	return report
}
