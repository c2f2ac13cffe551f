// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/rsvp-service/internal/config"
	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// smtpProvider sends through a generic authenticated SMTP server
// using go-mail.
type smtpProvider struct {
	cfg  *config.SMTPConfig
	from string
	name string
}

func newSMTPProvider(cfg *config.SMTPConfig, from, fromName string) *smtpProvider {
	return &smtpProvider{cfg: cfg, from: from, name: fromName}
}

func (p *smtpProvider) Name() string {
	return "smtp"
}

func (p *smtpProvider) Send(ctx context.Context, m *Message) (string, error) {
	msg := mail.NewMsg()

	from := m.From
	if from == "" {
		from = p.from
	}
	if p.name != "" {
		if err := msg.FromFormat(p.name, from); err != nil {
			return "", Permanent(fmt.Errorf("setting from address: %w", err))
		}
	} else {
		if err := msg.From(from); err != nil {
			return "", Permanent(fmt.Errorf("setting from address: %w", err))
		}
	}

	if err := msg.To(m.To); err != nil {
		return "", Permanent(fmt.Errorf("setting to address: %w", err))
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return "", Permanent(fmt.Errorf("setting reply-to address: %w", err))
		}
	}

	msg.Subject(m.Subject)
	switch {
	case m.HTML != "" && m.Text != "":
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	case m.HTML != "":
		msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	default:
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
	}

	for _, att := range m.Attachments {
		opts := []mail.FileOption{}
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		if err := msg.AttachReader(att.Filename, bytes.NewReader(att.Content), opts...); err != nil {
			return "", Permanent(fmt.Errorf("attaching %s: %w", att.Filename, err))
		}
	}

	messageID := uuid.NewString()
	msg.SetMessageIDWithValue(messageID)

	client, err := p.client()
	if err != nil {
		return "", fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", classifySMTP(err)
	}
	return messageID, nil
}

func (p *smtpProvider) Verify(ctx context.Context) bool {
	client, err := p.client()
	if err != nil {
		return false
	}
	if err := client.DialWithContext(ctx); err != nil {
		return false
	}
	_ = client.Close()
	return true
}

func (p *smtpProvider) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(p.cfg.Port),
	}

	if p.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS (SSL) for port 465, STARTTLS for others
		if p.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if p.cfg.Username != "" && p.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(p.cfg.Username),
			mail.WithPassword(p.cfg.Password),
		)
	}

	return mail.NewClient(p.cfg.Host, opts...)
}

// classifySMTP maps SMTP failures onto the transient/permanent split.
// go-mail marks 4xx SMTP replies as temporary; permanent 5xx replies
// (bad recipient, rejected auth) stop the failover loop.
func classifySMTP(err error) error {
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && !sendErr.IsTemp() {
		return Permanent(fmt.Errorf("sending email: %w", err))
	}
	return fmt.Errorf("sending email: %w", err)
}
