package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/cromashop/croma/internal/auth"
	"github.com/cromashop/croma/internal/email"
	"github.com/cromashop/croma/internal/logging"
	"github.com/cromashop/croma/internal/observability"
)

type newsletterStore interface {
	Subscribe(ctx context.Context, email string) error
	ActiveEmails(ctx context.Context) ([]string, error)
}

// MarketingService handles newsletter subscriptions and admin campaign
// sends.
type MarketingService struct {
	subscribers newsletterStore
	provider    email.Provider
	logger      *slog.Logger
}

func NewMarketingService(subscribers newsletterStore, provider email.Provider, logger *slog.Logger) *MarketingService {
	return &MarketingService{
		subscribers: subscribers,
		provider:    provider,
		logger:      logger,
	}
}

func (s *MarketingService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Subscribe adds an address to the newsletter list. Subscribing an address
// that is already on the list is not an error.
func (s *MarketingService) Subscribe(ctx context.Context, address string) error {
	address = strings.ToLower(strings.TrimSpace(address))
	if _, err := mail.ParseAddress(address); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEmail, address)
	}

	if err := s.subscribers.Subscribe(ctx, address); err != nil {
		return err
	}

	observability.MeterFromContext(ctx).Count("newsletter.subscribed", 1)
	s.loggerFromContext(ctx).Info("newsletter subscription added", "email", address)
	return nil
}

type CampaignInput struct {
	Subject   string
	HTML      string
	TestEmail string
}

// SendCampaign delivers a marketing email to every active subscriber, or
// only to TestEmail when one is given. Individual delivery failures are
// logged and skipped; the returned count is successful sends.
func (s *MarketingService) SendCampaign(ctx context.Context, identity *auth.Identity, input CampaignInput) (int, error) {
	logger := s.loggerFromContext(ctx)

	if identity == nil {
		return 0, ErrUnauthorized
	}
	if !identity.Admin {
		return 0, ErrForbidden
	}
	if strings.TrimSpace(input.Subject) == "" || strings.TrimSpace(input.HTML) == "" {
		return 0, fmt.Errorf("%w: subject and body are required", ErrInvalidEmail)
	}

	recipients := []string{input.TestEmail}
	if strings.TrimSpace(input.TestEmail) == "" {
		var err error
		recipients, err = s.subscribers.ActiveEmails(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to load subscribers: %w", err)
		}
	}

	sent := 0
	for _, recipient := range recipients {
		msg := &email.Email{
			To:      recipient,
			Subject: input.Subject,
			HTML:    input.HTML,
		}
		if err := s.provider.SendEmail(ctx, msg); err != nil {
			logger.Error("failed to send campaign email", "error", err, "to", recipient)
			continue
		}
		sent++
	}

	logger.Info("campaign sent", "subject", input.Subject, "recipients", len(recipients), "sent", sent, "test", input.TestEmail != "")
	return sent, nil
}
