// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/rsvp-service/internal/models"
	"codeberg.org/oliverandrich/rsvp-service/internal/repository"
	"codeberg.org/oliverandrich/rsvp-service/internal/services/delivery"
	"github.com/labstack/echo/v4"
)

type sendRequest struct {
	delivery.Message
	// Variables are substituted into subject and body before dispatch.
	Variables map[string]string `json:"variables,omitempty"`
}

func (r *sendRequest) message() *delivery.Message {
	msg := r.Message
	if len(r.Variables) > 0 {
		msg.Subject = delivery.RenderTemplate(msg.Subject, r.Variables)
		msg.HTML = delivery.RenderTemplate(msg.HTML, r.Variables)
		msg.Text = delivery.RenderTemplate(msg.Text, r.Variables)
	}
	return &msg
}

func validateSend(msg *delivery.Message) error {
	if msg.To == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "to is required")
	}
	if msg.EventID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event_id is required")
	}
	if msg.HTML == "" && msg.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "html or text body is required")
	}
	return nil
}

// SendMessage dispatches one message with provider failover. A failed
// send is a normal business outcome (200 with success=false); only a
// failed audit write is an internal error.
func (h *Handlers) SendMessage(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	msg := req.message()
	if err := validateSend(msg); err != nil {
		return err
	}

	result, err := h.dispatcher.Send(c.Request().Context(), msg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type sendBulkRequest struct {
	Messages  []*delivery.Message `json:"messages"`
	Variables map[string]string   `json:"variables,omitempty"`
}

// SendMessageBulk dispatches a batch sequentially. The response list
// matches the request order, including entries for failed recipients.
func (h *Handlers) SendMessageBulk(c echo.Context) error {
	var req sendBulkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages is required")
	}
	for _, msg := range req.Messages {
		if len(req.Variables) > 0 {
			msg.Subject = delivery.RenderTemplate(msg.Subject, req.Variables)
			msg.HTML = delivery.RenderTemplate(msg.HTML, req.Variables)
			msg.Text = delivery.RenderTemplate(msg.Text, req.Variables)
		}
		if err := validateSend(msg); err != nil {
			return err
		}
	}

	results := h.dispatcher.SendBulk(c.Request().Context(), req.Messages)
	return c.JSON(http.StatusOK, results)
}

type statusUpdateRequest struct {
	Status    models.CommunicationStatus `json:"status"`
	Timestamp *time.Time                 `json:"timestamp,omitempty"`
}

// UpdateMessageStatus is the hook for out-of-band delivery callbacks
// (delivered/opened/clicked). Only forward status transitions are
// accepted.
func (h *Handlers) UpdateMessageStatus(c echo.Context) error {
	messageID := c.Param("id")
	if messageID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message id is required")
	}

	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}

	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	err := h.repo.UpdateDeliveryStatus(c.Request().Context(), messageID, req.Status, at)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "unknown message id")
	case errors.Is(err, repository.ErrStatusRegression):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
