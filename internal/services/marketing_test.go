package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/auth"
	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/email"
)

type fakeNewsletterStore struct {
	mu     sync.Mutex
	emails map[string]bool
}

func newFakeNewsletterStore(addresses ...string) *fakeNewsletterStore {
	store := &fakeNewsletterStore{emails: make(map[string]bool)}
	for _, address := range addresses {
		store.emails[address] = true
	}
	return store
}

func (s *fakeNewsletterStore) Subscribe(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emails[address] {
		return db.ErrAlreadySubscribed
	}
	s.emails[address] = true
	return nil
}

func (s *fakeNewsletterStore) ActiveEmails(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.emails))
	for address := range s.emails {
		out = append(out, address)
	}
	return out, nil
}

type fakeEmailProvider struct {
	mu      sync.Mutex
	sent    []*email.Email
	failFor map[string]error
}

func (p *fakeEmailProvider) SendEmail(_ context.Context, msg *email.Email) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failFor[msg.To]; ok {
		return err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	store := newFakeNewsletterStore()
	service := NewMarketingService(store, &fakeEmailProvider{}, slog.Default())

	if err := service.Subscribe(t.Context(), "  Ana@Example.COM "); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !store.emails["ana@example.com"] {
		t.Error("address should be stored normalized")
	}

	if err := service.Subscribe(t.Context(), "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("error = %v, want ErrInvalidEmail", err)
	}

	if err := service.Subscribe(t.Context(), "ana@example.com"); !errors.Is(err, db.ErrAlreadySubscribed) {
		t.Fatalf("error = %v, want ErrAlreadySubscribed", err)
	}
}

func TestSendCampaign(t *testing.T) {
	t.Parallel()

	admin := &auth.Identity{UserID: uuid.New(), Admin: true}

	t.Run("requires admin", func(t *testing.T) {
		t.Parallel()
		service := NewMarketingService(newFakeNewsletterStore(), &fakeEmailProvider{}, slog.Default())

		_, err := service.SendCampaign(t.Context(), &auth.Identity{UserID: uuid.New()}, CampaignInput{Subject: "Drop", HTML: "<p>new</p>"})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("test send goes to one address", func(t *testing.T) {
		t.Parallel()
		provider := &fakeEmailProvider{}
		service := NewMarketingService(newFakeNewsletterStore("a@example.com", "b@example.com"), provider, slog.Default())

		sent, err := service.SendCampaign(t.Context(), admin, CampaignInput{
			Subject:   "Drop 04",
			HTML:      "<p>new collection</p>",
			TestEmail: "admin@example.com",
		})
		if err != nil {
			t.Fatalf("SendCampaign() error = %v", err)
		}
		if sent != 1 || len(provider.sent) != 1 || provider.sent[0].To != "admin@example.com" {
			t.Fatalf("unexpected sends: %d, %+v", sent, provider.sent)
		}
	})

	t.Run("delivery failures are skipped", func(t *testing.T) {
		t.Parallel()
		provider := &fakeEmailProvider{failFor: map[string]error{"b@example.com": errors.New("bounce")}}
		service := NewMarketingService(newFakeNewsletterStore("a@example.com", "b@example.com", "c@example.com"), provider, slog.Default())

		sent, err := service.SendCampaign(t.Context(), admin, CampaignInput{Subject: "Drop 04", HTML: "<p>new</p>"})
		if err != nil {
			t.Fatalf("SendCampaign() error = %v", err)
		}
		if sent != 2 {
			t.Fatalf("sent = %d, want 2", sent)
		}
	})
}
