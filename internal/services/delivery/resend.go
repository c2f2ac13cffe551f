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
)

const resendBaseURL = "https://api.resend.com"

// resendProvider sends through the Resend HTTP API with an API key.
type resendProvider struct {
	apiKey   string
	from     string
	fromName string
	baseURL  string
	client   *http.Client
}

func newResendProvider(cfg *config.ResendConfig, from, fromName string) *resendProvider {
	return &resendProvider{
		apiKey:   cfg.APIKey,
		from:     from,
		fromName: fromName,
		baseURL:  resendBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendRequest struct { //nolint:govet // fieldalignment: wire format
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html,omitempty"`
	Text        string             `json:"text,omitempty"`
	ReplyTo     string             `json:"reply_to,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func (p *resendProvider) Name() string {
	return "resend"
}

func (p *resendProvider) Send(ctx context.Context, m *Message) (string, error) {
	from := m.From
	if from == "" {
		from = p.from
	}
	if p.fromName != "" {
		from = fmt.Sprintf("%s <%s>", p.fromName, from)
	}

	payload := resendRequest{
		From:    from,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
		Text:    m.Text,
		ReplyTo: m.ReplyTo,
	}
	for _, att := range m.Attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Filename: att.Filename,
			Content:  base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", Permanent(fmt.Errorf("resend: encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("resend: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", classifyHTTP("resend", resp.StatusCode, string(snippet))
	}

	var out resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("resend: decode response: %w", err)
	}
	return out.ID, nil
}

func (p *resendProvider) Verify(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/domains", nil)
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
