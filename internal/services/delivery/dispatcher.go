// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/rsvp-service/internal/config"
	"codeberg.org/oliverandrich/rsvp-service/internal/models"
	"codeberg.org/oliverandrich/rsvp-service/internal/repository"
	"golang.org/x/time/rate"
)

// Dispatcher sends messages through the registry with ordered
// failover and records every attempt in the communication log.
type Dispatcher struct { //nolint:govet // fieldalignment: readability over optimization
	registry        *Registry
	repo            *repository.Repository
	limiter         *rate.Limiter
	providerTimeout time.Duration
	batchTimeout    time.Duration
	now             func() time.Time
}

// NewDispatcher creates a dispatcher. The limiter paces bulk sends to
// one message per configured delay as backpressure against provider
// rate limits.
func NewDispatcher(registry *Registry, repo *repository.Repository, cfg config.DeliveryConfig) *Dispatcher {
	delay := time.Duration(cfg.SendDelayMS) * time.Millisecond
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	providerTimeout := time.Duration(cfg.ProviderTimeoutS) * time.Second
	if providerTimeout <= 0 {
		providerTimeout = 30 * time.Second
	}
	batchTimeout := time.Duration(cfg.BatchTimeoutS) * time.Second
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Minute
	}

	return &Dispatcher{
		registry:        registry,
		repo:            repo,
		limiter:         rate.NewLimiter(rate.Every(delay), 1),
		providerTimeout: providerTimeout,
		batchTimeout:    batchTimeout,
		now:             time.Now,
	}
}

// Send attempts providers strictly in registry order and returns on
// the first success. A permanent failure (bad recipient, rejected
// credentials) stops the loop; failing over cannot help there. The
// outcome is appended to the communication log before Send returns.
// A non-nil error means the audit write failed; the Result still
// describes the provider outcome.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) (*Result, error) {
	if d.registry.Empty() {
		result := &Result{
			Success:        false,
			Provider:       ProviderNone,
			Error:          "no delivery provider configured",
			DeliveryStatus: models.StatusFailed,
		}
		return result, d.logAttempt(ctx, msg, result)
	}

	var lastErr error
	for _, p := range d.registry.Providers() {
		callCtx, cancel := context.WithTimeout(ctx, d.providerTimeout)
		messageID, err := p.Send(callCtx, msg)
		cancel()

		if err == nil {
			result := &Result{
				Success:        true,
				MessageID:      messageID,
				Provider:       p.Name(),
				DeliveryStatus: models.StatusSent,
			}
			return result, d.logAttempt(ctx, msg, result)
		}

		lastErr = err
		slog.Warn("provider send failed",
			"provider", p.Name(),
			"recipient", msg.To,
			"permanent", IsPermanent(err),
			"error", err,
		)
		if IsPermanent(err) {
			break
		}
	}

	result := &Result{
		Success:        false,
		Provider:       ProviderFallback,
		Error:          lastErr.Error(),
		DeliveryStatus: models.StatusFailed,
	}
	return result, d.logAttempt(ctx, msg, result)
}

// SendBulk processes messages sequentially in input order, pacing
// successive sends through the rate limiter and bounding the whole
// batch with a deadline. One recipient's failure never stops the
// batch; the result slice always matches the input in length and
// order.
func (d *Dispatcher) SendBulk(ctx context.Context, msgs []*Message) []*Result {
	ctx, cancel := context.WithTimeout(ctx, d.batchTimeout)
	defer cancel()

	results := make([]*Result, 0, len(msgs))
	for _, msg := range msgs {
		// Every send pays the limiter. The bucket's initial token is
		// spent on the first message, so the full delay sits between
		// each pair of successive sends.
		if err := d.limiter.Wait(ctx); err != nil {
			// Batch deadline hit while pacing. The remaining
			// sends run against the expired context and fail
			// fast, which still produces one result and one log
			// row per recipient.
			slog.Warn("bulk pacing interrupted", "error", err)
		}
		result, err := d.Send(ctx, msg)
		if err != nil {
			slog.Error("failed to record delivery attempt",
				"recipient", msg.To,
				"error", err,
			)
		}
		results = append(results, result)
	}
	return results
}

// auditWriteTimeout bounds the audit insert independently of the
// caller's deadline.
const auditWriteTimeout = 5 * time.Second

// logAttempt appends one audit row for a send outcome. Log writes are
// not best-effort: a persistence failure is reported to the caller,
// never swallowed. The write runs on its own deadline so an expired
// batch context cannot lose the rows of the remaining recipients.
func (d *Dispatcher) logAttempt(ctx context.Context, msg *Message, result *Result) error {
	rec := &models.CommunicationRecord{
		EventID:    msg.EventID,
		GuestID:    msg.GuestID,
		Channel:    models.ChannelEmail,
		Recipient:  msg.To,
		TemplateID: msg.TemplateID,
		Status:     result.DeliveryStatus,
		Provider:   result.Provider,
	}
	if result.MessageID != "" {
		rec.MessageID = &result.MessageID
	}
	if result.Error != "" {
		rec.ErrorMessage = &result.Error
	}
	if result.Success {
		sentAt := d.now()
		rec.SentAt = &sentAt
	}
	if len(msg.Metadata) > 0 {
		if encoded, err := encodeMetadata(msg.Metadata); err == nil {
			rec.Metadata = &encoded
		}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if _, err := d.repo.AppendCommunication(writeCtx, rec); err != nil {
		return fmt.Errorf("append communication record: %w", err)
	}
	return nil
}
