// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Token     TokenConfig
	Delivery  DeliveryConfig
	Providers ProvidersConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host    string
	Port    int
	BaseURL string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type TokenConfig struct {
	TTLDays int // default TTL for issued tokens
}

type DeliveryConfig struct { //nolint:govet // fieldalignment not critical for config structs
	SendDelayMS      int // fixed delay between bulk sends
	ProviderTimeoutS int // timeout per provider call
	BatchTimeoutS    int // overall deadline per bulk batch
}

// ProvidersConfig carries the per-event provider credentials. It is
// read-only input to registry construction; a provider with missing
// credentials is silently excluded, not an error.
type ProvidersConfig struct { //nolint:govet // fieldalignment not critical for config structs
	From     string
	FromName string
	Priority []string // provider order, first entry is primary

	SMTP     SMTPConfig
	Resend   ResendConfig
	SendGrid SendGridConfig
	Gmail    GmailConfig
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

type ResendConfig struct {
	APIKey string
}

type SendGridConfig struct {
	APIKey string
}

// GmailConfig holds OAuth2 credentials for sending through the Gmail
// API with a stored refresh token.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Sender       string
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:    cmd.String("host"),
			Port:    int(cmd.Int("port")),
			BaseURL: cmd.String("base-url"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Token: TokenConfig{
			TTLDays: int(cmd.Int("token-ttl-days")),
		},
		Delivery: DeliveryConfig{
			SendDelayMS:      int(cmd.Int("send-delay-ms")),
			ProviderTimeoutS: int(cmd.Int("provider-timeout")),
			BatchTimeoutS:    int(cmd.Int("batch-timeout")),
		},
		Providers: ProvidersConfig{
			From:     cmd.String("mail-from"),
			FromName: cmd.String("mail-from-name"),
			Priority: splitPriority(cmd.String("provider-priority")),
			SMTP: SMTPConfig{
				Host:     cmd.String("smtp-host"),
				Port:     int(cmd.Int("smtp-port")),
				Username: cmd.String("smtp-username"),
				Password: cmd.String("smtp-password"),
				TLS:      cmd.Bool("smtp-tls"),
			},
			Resend: ResendConfig{
				APIKey: cmd.String("resend-api-key"),
			},
			SendGrid: SendGridConfig{
				APIKey: cmd.String("sendgrid-api-key"),
			},
			Gmail: GmailConfig{
				ClientID:     cmd.String("gmail-client-id"),
				ClientSecret: cmd.String("gmail-client-secret"),
				RefreshToken: cmd.String("gmail-refresh-token"),
				Sender:       cmd.String("gmail-sender"),
			},
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	return cfg
}

func splitPriority(s string) []string {
	var order []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			order = append(order, name)
		}
	}
	return order
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL used in RSVP links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/rsvp.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.IntFlag{
			Name:    "token-ttl-days",
			Value:   30,
			Usage:   "Default TTL in days for issued RSVP tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOKEN_TTL_DAYS"), toml.TOML("token.ttl_days", configFile)),
		},
		&cli.IntFlag{
			Name:    "send-delay-ms",
			Value:   100,
			Usage:   "Fixed delay between bulk sends in milliseconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SEND_DELAY_MS"), toml.TOML("delivery.send_delay_ms", configFile)),
		},
		&cli.IntFlag{
			Name:    "provider-timeout",
			Value:   30,
			Usage:   "Timeout per provider call in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PROVIDER_TIMEOUT"), toml.TOML("delivery.provider_timeout", configFile)),
		},
		&cli.IntFlag{
			Name:    "batch-timeout",
			Value:   600,
			Usage:   "Overall deadline per bulk batch in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BATCH_TIMEOUT"), toml.TOML("delivery.batch_timeout", configFile)),
		},
		&cli.StringFlag{
			Name:    "provider-priority",
			Value:   "resend,sendgrid,gmail,smtp",
			Usage:   "Provider order for failover, first configured entry is primary",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PROVIDER_PRIORITY"), toml.TOML("providers.priority", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-from",
			Usage:   "From address for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_FROM"), toml.TOML("providers.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-from-name",
			Usage:   "Display name for the from address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_FROM_NAME"), toml.TOML("providers.from_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("providers.smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("providers.smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("providers.smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("providers.smtp.password", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Use TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("providers.smtp.tls", configFile)),
		},
		&cli.StringFlag{
			Name:    "resend-api-key",
			Usage:   "Resend API key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESEND_API_KEY"), toml.TOML("providers.resend.api_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "sendgrid-api-key",
			Usage:   "SendGrid API key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SENDGRID_API_KEY"), toml.TOML("providers.sendgrid.api_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "gmail-client-id",
			Usage:   "Gmail OAuth2 client id",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GMAIL_CLIENT_ID"), toml.TOML("providers.gmail.client_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "gmail-client-secret",
			Usage:   "Gmail OAuth2 client secret",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GMAIL_CLIENT_SECRET"), toml.TOML("providers.gmail.client_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "gmail-refresh-token",
			Usage:   "Gmail OAuth2 refresh token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GMAIL_REFRESH_TOKEN"), toml.TOML("providers.gmail.refresh_token", configFile)),
		},
		&cli.StringFlag{
			Name:    "gmail-sender",
			Usage:   "Gmail sender address (defaults to mail-from)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GMAIL_SENDER"), toml.TOML("providers.gmail.sender", configFile)),
		},
	}
}
