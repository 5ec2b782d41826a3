package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/cromashop/croma/internal/cache"
	"github.com/cromashop/croma/internal/config"
	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/services"
	"github.com/cromashop/croma/internal/stripe"
)

const testWebhookSecret = "whsec_test_secret"

type webhookOrderStore struct {
	mu    sync.Mutex
	order *models.Order
}

func (s *webhookOrderStore) GetByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.ID != orderID {
		return nil, db.ErrNotFound
	}
	return s.order, nil
}

func (s *webhookOrderStore) GetByStripeSessionID(_ context.Context, sessionID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.StripeSessionID != sessionID {
		return nil, db.ErrNotFound
	}
	return s.order, nil
}

func (s *webhookOrderStore) MarkProcessing(_ context.Context, orderID uuid.UUID, paymentIntentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.ID != orderID {
		return db.ErrNotFound
	}
	if s.order.Status != models.StatusPending {
		return db.ErrInvalidStatusTransition
	}
	s.order.Status = models.StatusProcessing
	s.order.StripePaymentIntentID = paymentIntentID
	return nil
}

func (s *webhookOrderStore) CancelAndRestock(_ context.Context, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.ID != orderID {
		return db.ErrNotFound
	}
	if s.order.Status != models.StatusPending && s.order.Status != models.StatusProcessing {
		return db.ErrInvalidStatusTransition
	}
	s.order.Status = models.StatusCancelled
	return nil
}

type webhookCoupons struct{}

func (webhookCoupons) RecordUse(context.Context, string) error { return nil }

type webhookGateway struct{}

func (webhookGateway) GetCheckoutSession(context.Context, string) (*stripe.Session, error) {
	return nil, fmt.Errorf("not used in webhook tests")
}

type countingEmailSender struct {
	mu            sync.Mutex
	confirmations int
}

func (s *countingEmailSender) SendOrderConfirmation(context.Context, *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations++
	return nil
}

func (s *countingEmailSender) SendOrderStatusUpdate(context.Context, *models.Order, models.OrderStatus) error {
	return nil
}

func newWebhookFixture(t *testing.T, order *models.Order) (*Handlers, *webhookOrderStore, *countingEmailSender) {
	t.Helper()

	cacheProvider, err := cache.NewProvider(cache.Config{Provider: "memory"})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { _ = cacheProvider.Close() })

	orders := &webhookOrderStore{order: order}
	emails := &countingEmailSender{}
	reconcile := services.NewReconcileService(orders, webhookCoupons{}, webhookGateway{}, emails, slog.Default())

	h := &Handlers{
		config:        &config.Config{StripeWebhookSecret: testWebhookSecret},
		cacheProvider: cacheProvider,
		stripeRouter:  NewStripeEventRouter(reconcile, slog.Default()),
		logger:        slog.Default(),
	}
	return h, orders, emails
}

func signedWebhookRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func completedEventPayload(eventID, sessionID string, orderID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2026-01-28.clover",
		"type": "checkout.session.completed",
		"data": {"object": {"id": %q, "object": "checkout.session", "payment_intent": {"id": "pi_test_1"}, "metadata": {"order_id": %q}}}
	}`, eventID, sessionID, orderID))
}

func TestStripeWebhook_RejectsBadSignature(t *testing.T) {
	t.Parallel()

	h, _, _ := newWebhookFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStripeWebhook_ProcessesCompletedSession(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ID:              uuid.New(),
		Status:          models.StatusPending,
		StripeSessionID: "cs_test_1",
		ShippingAddress: models.ShippingAddress{Name: "Ana", Email: "ana@example.com"},
	}
	h, orders, emails := newWebhookFixture(t, order)

	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest(t, completedEventPayload("evt_1", "cs_test_1", order.ID)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Errorf("body = %s, want received acknowledgement", rec.Body.String())
	}
	if orders.order.Status != models.StatusProcessing {
		t.Fatalf("order status = %s, want processing", orders.order.Status)
	}
	if emails.confirmations != 1 {
		t.Errorf("confirmations = %d, want 1", emails.confirmations)
	}
}

func TestStripeWebhook_DeduplicatesEventIDs(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ID:              uuid.New(),
		Status:          models.StatusPending,
		StripeSessionID: "cs_test_2",
		ShippingAddress: models.ShippingAddress{Name: "Ana", Email: "ana@example.com"},
	}
	h, _, emails := newWebhookFixture(t, order)

	payload := completedEventPayload("evt_dup", "cs_test_2", order.ID)

	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest(t, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest(t, payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("second delivery status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Errorf("duplicate delivery body = %s, want received acknowledgement", rec.Body.String())
	}

	if emails.confirmations != 1 {
		t.Errorf("confirmations = %d, want exactly 1 after duplicate delivery", emails.confirmations)
	}
}

func TestStripeWebhook_UnhandledEventTypeIsAccepted(t *testing.T) {
	t.Parallel()

	h, _, _ := newWebhookFixture(t, nil)

	payload := []byte(`{
		"id": "evt_other",
		"object": "event",
		"api_version": "2026-01-28.clover",
		"type": "invoice.paid",
		"data": {"object": {"id": "in_test"}}
	}`)

	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest(t, payload))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unhandled event type", rec.Code)
	}
}
