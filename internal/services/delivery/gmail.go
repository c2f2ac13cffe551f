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
	"mime/multipart"
	"net/http"
	"net/textproto"

	"codeberg.org/oliverandrich/rsvp-service/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const gmailBaseURL = "https://gmail.googleapis.com"

// gmailProvider sends through the Gmail REST API, authenticated with
// an OAuth2 refresh token. Token refresh is handled by the oauth2
// transport.
type gmailProvider struct {
	sender  string
	baseURL string
	source  oauth2.TokenSource
}

func newGmailProvider(cfg *config.GmailConfig, from string) *gmailProvider {
	sender := cfg.Sender
	if sender == "" {
		sender = from
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.send"},
	}
	source := oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return &gmailProvider{
		sender:  sender,
		baseURL: gmailBaseURL,
		source:  source,
	}
}

type gmailSendRequest struct {
	Raw string `json:"raw"`
}

type gmailSendResponse struct {
	ID string `json:"id"`
}

func (p *gmailProvider) Name() string {
	return "gmail"
}

func (p *gmailProvider) Send(ctx context.Context, m *Message) (string, error) {
	raw, err := buildMIME(p.sender, m)
	if err != nil {
		return "", Permanent(fmt.Errorf("gmail: build message: %w", err))
	}

	payload, err := json.Marshal(gmailSendRequest{
		Raw: base64.URLEncoding.EncodeToString(raw),
	})
	if err != nil {
		return "", Permanent(fmt.Errorf("gmail: encode request: %w", err))
	}

	url := p.baseURL + "/gmail/v1/users/me/messages/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gmail: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := oauth2.NewClient(ctx, p.source)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gmail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", classifyHTTP("gmail", resp.StatusCode, string(snippet))
	}

	var out gmailSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gmail: decode response: %w", err)
	}
	return out.ID, nil
}

func (p *gmailProvider) Verify(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/gmail/v1/users/me/profile", nil)
	if err != nil {
		return false
	}

	client := oauth2.NewClient(ctx, p.source)
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// buildMIME assembles the RFC 822 message the Gmail API expects:
// multipart/mixed around a multipart/alternative body when both text
// and attachments are present.
func buildMIME(sender string, m *Message) ([]byte, error) {
	from := m.From
	if from == "" {
		from = sender
	}

	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", m.To)
	if m.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", m.ReplyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixed.Boundary())

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	if m.Text != "" {
		part, err := altWriter.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"text/plain; charset=UTF-8"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(m.Text)); err != nil {
			return nil, err
		}
	}
	if m.HTML != "" {
		part, err := altWriter.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"text/html; charset=UTF-8"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(m.HTML)); err != nil {
			return nil, err
		}
	}
	if err := altWriter.Close(); err != nil {
		return nil, err
	}

	body, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%s", altWriter.Boundary())},
	})
	if err != nil {
		return nil, err
	}
	if _, err := body.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	for _, att := range m.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", att.Filename)},
		})
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(att.Content)
		if _, err := part.Write([]byte(encoded)); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
