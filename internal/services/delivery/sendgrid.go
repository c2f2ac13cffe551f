// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/rsvp-service/internal/config"
	"github.com/google/uuid"
)

const sendgridBaseURL = "https://api.sendgrid.com"

// sendgridProvider sends through the SendGrid v3 HTTP API with an
// API key.
type sendgridProvider struct {
	apiKey   string
	from     string
	fromName string
	baseURL  string
	client   *http.Client
}

func newSendGridProvider(cfg *config.SendGridConfig, from, fromName string) *sendgridProvider {
	return &sendgridProvider{
		apiKey:   cfg.APIKey,
		from:     from,
		fromName: fromName,
		baseURL:  sendgridBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridAttachment struct { //nolint:govet // fieldalignment: wire format
	Content  string `json:"content"`
	Filename string `json:"filename"`
	Type     string `json:"type,omitempty"`
}

type sendgridRequest struct { //nolint:govet // fieldalignment: wire format
	Personalizations []struct {
		To []sendgridAddress `json:"to"`
	} `json:"personalizations"`
	From        sendgridAddress      `json:"from"`
	ReplyTo     *sendgridAddress     `json:"reply_to,omitempty"`
	Subject     string               `json:"subject"`
	Content     []sendgridContent    `json:"content"`
	Attachments []sendgridAttachment `json:"attachments,omitempty"`
}

func (p *sendgridProvider) Name() string {
	return "sendgrid"
}

func (p *sendgridProvider) Send(ctx context.Context, m *Message) (string, error) {
	from := m.From
	if from == "" {
		from = p.from
	}

	payload := sendgridRequest{
		From:    sendgridAddress{Email: from, Name: p.fromName},
		Subject: m.Subject,
	}
	payload.Personalizations = append(payload.Personalizations, struct {
		To []sendgridAddress `json:"to"`
	}{To: []sendgridAddress{{Email: m.To}}})

	// SendGrid requires text/plain before text/html
	if m.Text != "" {
		payload.Content = append(payload.Content, sendgridContent{Type: "text/plain", Value: m.Text})
	}
	if m.HTML != "" {
		payload.Content = append(payload.Content, sendgridContent{Type: "text/html", Value: m.HTML})
	}
	if m.ReplyTo != "" {
		payload.ReplyTo = &sendgridAddress{Email: m.ReplyTo}
	}
	for _, att := range m.Attachments {
		payload.Attachments = append(payload.Attachments, sendgridAttachment{
			Content:  base64.StdEncoding.EncodeToString(att.Content),
			Filename: att.Filename,
			Type:     att.ContentType,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", Permanent(fmt.Errorf("sendgrid: encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("sendgrid: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", classifyHTTP("sendgrid", resp.StatusCode, string(snippet))
	}

	// SendGrid returns the message id in a header, not the body.
	if id := resp.Header.Get("X-Message-Id"); id != "" {
		return id, nil
	}
	return uuid.NewString(), nil
}

func (p *sendgridProvider) Verify(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v3/scopes", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
