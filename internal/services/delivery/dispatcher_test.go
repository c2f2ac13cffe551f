// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"codeberg.org/oliverandrich/rsvp-service/internal/config"
	"codeberg.org/oliverandrich/rsvp-service/internal/models"
	"codeberg.org/oliverandrich/rsvp-service/internal/repository"
	"codeberg.org/oliverandrich/rsvp-service/internal/services/delivery"
	"codeberg.org/oliverandrich/rsvp-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider counts invocations and fails on demand.
type fakeProvider struct {
	name    string
	err     error
	healthy bool
	calls   int
	sentAt  []time.Time
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Send(_ context.Context, _ *delivery.Message) (string, error) {
	p.calls++
	p.sentAt = append(p.sentAt, time.Now())
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("%s-msg-%d", p.name, p.calls), nil
}

func (p *fakeProvider) Verify(_ context.Context) bool { return p.healthy }

func testConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		SendDelayMS:      1,
		ProviderTimeoutS: 5,
		BatchTimeoutS:    30,
	}
}

func newDispatcher(t *testing.T, providers ...delivery.Provider) (*delivery.Dispatcher, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	registry := delivery.NewRegistryWith(providers...)
	return delivery.NewDispatcher(registry, repo, testConfig()), repo
}

func testMessage(to string) *delivery.Message {
	return &delivery.Message{
		To:      to,
		Subject: "You're invited",
		Text:    "Please RSVP.",
		EventID: "event-1",
	}
}

func TestSend_PrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "A"}
	secondary := &fakeProvider{name: "B"}
	d, _ := newDispatcher(t, primary, secondary)

	result, err := d.Send(context.Background(), testMessage("guest@example.com"))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "A", result.Provider)
	assert.Equal(t, models.StatusSent, result.DeliveryStatus)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}

func TestSend_FallsBackOnTransientFailure(t *testing.T) {
	primary := &fakeProvider{name: "A", err: errors.New("connection timed out")}
	secondary := &fakeProvider{name: "B"}
	d, _ := newDispatcher(t, primary, secondary)

	result, err := d.Send(context.Background(), testMessage("guest@example.com"))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "B", result.Provider)
	// Exactly two provider invocations occurred
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestSend_PermanentFailureStopsFailover(t *testing.T) {
	primary := &fakeProvider{name: "A", err: delivery.Permanent(errors.New("invalid recipient"))}
	secondary := &fakeProvider{name: "B"}
	d, _ := newDispatcher(t, primary, secondary)

	result, err := d.Send(context.Background(), testMessage("not-an-address"))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, delivery.ProviderFallback, result.Provider)
	assert.Contains(t, result.Error, "invalid recipient")
	// Failing over on a permanent error would be pointless
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}

func TestSend_AllProvidersExhausted(t *testing.T) {
	a := &fakeProvider{name: "A", err: errors.New("timeout A")}
	b := &fakeProvider{name: "B", err: errors.New("timeout B")}
	d, repo := newDispatcher(t, a, b)

	result, err := d.Send(context.Background(), testMessage("guest@example.com"))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, delivery.ProviderFallback, result.Provider)
	// The last error wins
	assert.Contains(t, result.Error, "timeout B")
	assert.Equal(t, models.StatusFailed, result.DeliveryStatus)

	// Exactly one failed record was appended
	recs, err := repo.ListCommunicationsForEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.StatusFailed, recs[0].Status)
	assert.Equal(t, delivery.ProviderFallback, recs[0].Provider)
	require.NotNil(t, recs[0].ErrorMessage)
}

func TestSend_EmptyRegistry(t *testing.T) {
	d, repo := newDispatcher(t)

	result, err := d.Send(context.Background(), testMessage("guest@example.com"))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, delivery.ProviderNone, result.Provider)

	recs, err := repo.ListCommunicationsForEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, delivery.ProviderNone, recs[0].Provider)
}

func TestSend_SuccessIsLogged(t *testing.T) {
	d, repo := newDispatcher(t, &fakeProvider{name: "A"})

	guestID := "g1"
	msg := testMessage("guest@example.com")
	msg.GuestID = &guestID
	msg.Metadata = map[string]string{"campaign": "save-the-date"}

	result, err := d.Send(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, result.Success)

	recs, err := repo.ListCommunicationsForEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, models.StatusSent, rec.Status)
	assert.Equal(t, "A", rec.Provider)
	assert.Equal(t, "guest@example.com", rec.Recipient)
	require.NotNil(t, rec.GuestID)
	assert.Equal(t, guestID, *rec.GuestID)
	require.NotNil(t, rec.MessageID)
	assert.Equal(t, result.MessageID, *rec.MessageID)
	assert.NotNil(t, rec.SentAt)
	require.NotNil(t, rec.Metadata)
	assert.Contains(t, *rec.Metadata, "save-the-date")
}

func TestSendBulk_OrderAndLength(t *testing.T) {
	// B fails for everyone; A fails only for the second recipient is
	// not expressible with a static fake, so fail everything through a
	// transient error on A and let B succeed.
	a := &fakeProvider{name: "A", err: errors.New("throttled")}
	b := &fakeProvider{name: "B"}
	d, _ := newDispatcher(t, a, b)

	msgs := []*delivery.Message{
		testMessage("one@example.com"),
		testMessage("two@example.com"),
		testMessage("three@example.com"),
	}

	results := d.SendBulk(context.Background(), msgs)

	require.Len(t, results, 3)
	for i, result := range results {
		assert.True(t, result.Success, "result %d", i)
		assert.Equal(t, "B", result.Provider)
	}
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 3, b.calls)
}

func TestSendBulk_FailureDoesNotStopBatch(t *testing.T) {
	a := &fakeProvider{name: "A", err: errors.New("unreachable")}
	d, repo := newDispatcher(t, a)

	msgs := []*delivery.Message{
		testMessage("one@example.com"),
		testMessage("two@example.com"),
	}

	results := d.SendBulk(context.Background(), msgs)

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.False(t, results[1].Success)

	// One audit row per attempt, failures included
	recs, err := repo.ListCommunicationsForEvent(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestSendBulk_DelayBetweenEverySend(t *testing.T) {
	p := &fakeProvider{name: "A"}
	_, repo := testutil.NewTestDB(t)
	registry := delivery.NewRegistryWith(p)
	d := delivery.NewDispatcher(registry, repo, config.DeliveryConfig{
		SendDelayMS:      60,
		ProviderTimeoutS: 5,
		BatchTimeoutS:    30,
	})

	results := d.SendBulk(context.Background(), []*delivery.Message{
		testMessage("one@example.com"),
		testMessage("two@example.com"),
		testMessage("three@example.com"),
	})

	require.Len(t, results, 3)
	require.Len(t, p.sentAt, 3)
	// The delay sits between every pair of sends, the first included
	assert.GreaterOrEqual(t, p.sentAt[1].Sub(p.sentAt[0]), 50*time.Millisecond)
	assert.GreaterOrEqual(t, p.sentAt[2].Sub(p.sentAt[1]), 50*time.Millisecond)
}

func TestSend_AuditSurvivesCanceledContext(t *testing.T) {
	d, repo := newDispatcher(t, &fakeProvider{name: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := d.Send(ctx, testMessage("guest@example.com"))

	require.NoError(t, err)
	assert.True(t, result.Success)

	recs, err := repo.ListCommunicationsForEvent(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.StatusSent, recs[0].Status)
}

func TestSendBulk_Empty(t *testing.T) {
	d, _ := newDispatcher(t, &fakeProvider{name: "A"})

	results := d.SendBulk(context.Background(), nil)

	assert.Empty(t, results)
}
