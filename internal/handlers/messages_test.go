// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/rsvp-service/internal/config"
	"codeberg.org/oliverandrich/rsvp-service/internal/handlers"
	"codeberg.org/oliverandrich/rsvp-service/internal/models"
	"codeberg.org/oliverandrich/rsvp-service/internal/services/delivery"
	"codeberg.org/oliverandrich/rsvp-service/internal/services/token"
	"codeberg.org/oliverandrich/rsvp-service/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	stub := &stubProvider{name: "resend"}
	f := newFixture(t, stub)

	body := strings.NewReader(`{
		"to": "guest@example.com",
		"subject": "Save the date, {{name}}!",
		"text": "Dear {{name}}, we are getting married.",
		"event_id": "event-1",
		"variables": {"name": "Ada"}
	}`)
	c, rec := testutil.NewEchoContext(f.echo, http.MethodPost, "/api/messages", body)

	require.NoError(t, f.handlers.SendMessage(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var result delivery.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "resend", result.Provider)
	assert.NotEmpty(t, result.MessageID)

	// Variables were rendered before dispatch
	require.NotNil(t, stub.last)
	assert.Equal(t, "Save the date, Ada!", stub.last.Subject)
	assert.Equal(t, "Dear Ada, we are getting married.", stub.last.Text)

	recs, err := f.repo.ListCommunicationsForEvent(c.Request().Context(), "event-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.StatusSent, recs[0].Status)
}

func TestSendMessage_DeliveryFailureIsBusinessOutcome(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend", err: errors.New("upstream down")})

	body := strings.NewReader(`{"to":"guest@example.com","subject":"Hi","text":"Hello","event_id":"event-1"}`)
	c, rec := testutil.NewEchoContext(f.echo, http.MethodPost, "/api/messages", body)

	require.NoError(t, f.handlers.SendMessage(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var result delivery.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "upstream down")
}

func TestSendMessage_MissingRecipient(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})

	body := strings.NewReader(`{"subject":"Hi","text":"Hello","event_id":"event-1"}`)
	c, _ := testutil.NewEchoContext(f.echo, http.MethodPost, "/api/messages", body)

	err := f.handlers.SendMessage(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSendMessage_MissingBody(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})

	body := strings.NewReader(`{"to":"guest@example.com","subject":"Hi","event_id":"event-1"}`)
	c, _ := testutil.NewEchoContext(f.echo, http.MethodPost, "/api/messages", body)

	err := f.handlers.SendMessage(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSendMessageBulk(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})

	body := strings.NewReader(`{
		"messages": [
			{"to":"one@example.com","subject":"Hi {{name}}","text":"Hello","event_id":"event-1"},
			{"to":"two@example.com","subject":"Hi {{name}}","text":"Hello","event_id":"event-1"}
		],
		"variables": {"name": "friends"}
	}`)
	c, rec := testutil.NewEchoContext(f.echo, http.MethodPost, "/api/messages/bulk", body)

	require.NoError(t, f.handlers.SendMessageBulk(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var results []delivery.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
}

func TestSendMessageBulk_Empty(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})

	c, _ := testutil.NewEchoContext(f.echo, http.MethodPost, "/api/messages/bulk", strings.NewReader(`{"messages":[]}`))

	err := f.handlers.SendMessageBulk(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

// sendOne dispatches a message through the handler and returns the
// provider message id for status-hook tests.
func sendOne(t *testing.T, f *fixture) string {
	t.Helper()

	body := strings.NewReader(`{"to":"guest@example.com","subject":"Hi","text":"Hello","event_id":"event-1"}`)
	c, rec := testutil.NewEchoContext(f.echo, http.MethodPost, "/api/messages", body)
	require.NoError(t, f.handlers.SendMessage(c))

	var result delivery.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)
	return result.MessageID
}

func TestUpdateMessageStatus(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})
	messageID := sendOne(t, f)

	c, rec := testutil.NewEchoContext(f.echo, http.MethodPatch, "/api/messages/"+messageID+"/status",
		strings.NewReader(`{"status":"delivered"}`))
	c.SetParamNames("id")
	c.SetParamValues(messageID)

	require.NoError(t, f.handlers.UpdateMessageStatus(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	row, err := f.repo.GetCommunicationByMessageID(c.Request().Context(), messageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, row.Status)
	assert.NotNil(t, row.DeliveredAt)
}

func TestUpdateMessageStatus_UnknownMessage(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})

	c, _ := testutil.NewEchoContext(f.echo, http.MethodPatch, "/api/messages/nope/status",
		strings.NewReader(`{"status":"delivered"}`))
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := f.handlers.UpdateMessageStatus(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestUpdateMessageStatus_BackwardsTransitionConflicts(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})
	messageID := sendOne(t, f)

	// sent -> opened
	c, rec := testutil.NewEchoContext(f.echo, http.MethodPatch, "/api/messages/"+messageID+"/status",
		strings.NewReader(`{"status":"opened"}`))
	c.SetParamNames("id")
	c.SetParamValues(messageID)
	require.NoError(t, f.handlers.UpdateMessageStatus(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// opened -> delivered must be rejected
	c, _ = testutil.NewEchoContext(f.echo, http.MethodPatch, "/api/messages/"+messageID+"/status",
		strings.NewReader(`{"status":"delivered"}`))
	c.SetParamNames("id")
	c.SetParamValues(messageID)

	err := f.handlers.UpdateMessageStatus(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusConflict, httpErr.Code)
}

func TestUpdateMessageStatus_StorageFailureIsNotAConflict(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	tokens := token.New(repo)
	registry := delivery.NewRegistryWith(&stubProvider{name: "resend"})
	dispatcher := delivery.NewDispatcher(registry, repo, config.DeliveryConfig{
		SendDelayMS:      1,
		ProviderTimeoutS: 5,
		BatchTimeoutS:    30,
	})
	h := handlers.New(repo, tokens, dispatcher, registry, "https://wedding.example.com")
	e := echo.New()

	require.NoError(t, db.Close())

	c, _ := testutil.NewEchoContext(e, http.MethodPatch, "/api/messages/msg-1/status",
		strings.NewReader(`{"status":"delivered"}`))
	c.SetParamNames("id")
	c.SetParamValues("msg-1")

	err := h.UpdateMessageStatus(c)

	// A persistence failure surfaces as an internal error, not 409
	require.Error(t, err)
	var httpErr *echo.HTTPError
	assert.False(t, errors.As(err, &httpErr))
}

func TestCommunicationStatsEndpoint(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})
	sendOne(t, f)

	c, rec := testutil.NewEchoContext(f.echo, http.MethodGet, "/api/events/event-1/communications/stats", nil)
	c.SetParamNames("id")
	c.SetParamValues("event-1")

	require.NoError(t, f.handlers.CommunicationStats(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var stats models.CommunicationStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Sent)
}

func TestListCommunicationsEndpoint(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"})
	sendOne(t, f)

	c, rec := testutil.NewEchoContext(f.echo, http.MethodGet, "/api/events/event-1/communications", nil)
	c.SetParamNames("id")
	c.SetParamValues("event-1")

	require.NoError(t, f.handlers.ListCommunications(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var recs []models.CommunicationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "guest@example.com", recs[0].Recipient)
}

func TestListProvidersEndpoint(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"}, &stubProvider{name: "smtp"})

	c, rec := testutil.NewEchoContext(f.echo, http.MethodGet, "/api/providers", nil)

	require.NoError(t, f.handlers.ListProviders(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"providers":["resend","smtp"]}`, rec.Body.String())
}

func TestProviderHealthEndpoint(t *testing.T) {
	f := newFixture(t, &stubProvider{name: "resend"}, &stubProvider{name: "smtp", err: errors.New("down")})

	c, rec := testutil.NewEchoContext(f.echo, http.MethodGet, "/api/providers/health", nil)

	require.NoError(t, f.handlers.ProviderHealth(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var report []delivery.ProviderHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report, 2)
	assert.True(t, report[0].Healthy)
	assert.False(t, report[1].Healthy)
}
