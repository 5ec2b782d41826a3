// Package email provides the outbound email providers and templates.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string

	// SMTP relay settings, used when Provider is "smtp".
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
}

func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "resend":
		return NewResendProvider(config.APIKey, config.From), nil
	case "smtp":
		return NewSMTPProvider(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPass, config.From), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'resend' or 'smtp'")
	}
}
