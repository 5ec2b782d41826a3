package services

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/stripe"
)

func pendingOrder(sessionID string) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		Status:          models.StatusPending,
		TotalCents:      9000,
		StripeSessionID: sessionID,
		ShippingAddress: testAddress(),
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), ProductName: "Oversized Tee Black", Size: "M", Quantity: 2, PriceCents: 5000},
		},
	}
}

func newReconcileFixture(orders ...*models.Order) (*ReconcileService, *fakeOrderStore, *fakeCoupons, *fakeGateway, *fakeEmailSender) {
	store := newFakeOrderStore(orders...)
	coupons := &fakeCoupons{}
	gateway := &fakeGateway{}
	emails := &fakeEmailSender{}
	service := NewReconcileService(store, coupons, gateway, emails, slog.Default())
	return service, store, coupons, gateway, emails
}

func completedPayload(sessionID string, orderID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"payment_intent":{"id":"pi_test_1"},"metadata":{"order_id":%q}}`,
		sessionID, orderID,
	))
}

func TestHandleCheckoutSessionCompleted_SettlesOnce(t *testing.T) {
	t.Parallel()

	order := pendingOrder("cs_test_1")
	order.CouponCode = "WELCOME10"
	service, store, coupons, _, emails := newReconcileFixture(order)

	payload := completedPayload("cs_test_1", order.ID)
	if err := service.HandleCheckoutSessionCompleted(t.Context(), payload); err != nil {
		t.Fatalf("first delivery error = %v", err)
	}

	got, _ := store.GetByID(t.Context(), order.ID)
	if got.Status != models.StatusProcessing {
		t.Fatalf("Status = %s, want processing", got.Status)
	}
	if got.StripePaymentIntentID != "pi_test_1" {
		t.Errorf("payment intent = %q, want pi_test_1", got.StripePaymentIntentID)
	}
	if len(emails.confirmations) != 1 {
		t.Fatalf("confirmations = %d, want 1", len(emails.confirmations))
	}
	if len(coupons.used) != 1 || coupons.used[0] != "WELCOME10" {
		t.Errorf("coupon use = %v, want [WELCOME10]", coupons.used)
	}

	// A replayed event must be a no-op: no error, no second email.
	if err := service.HandleCheckoutSessionCompleted(t.Context(), payload); err != nil {
		t.Fatalf("replayed delivery error = %v", err)
	}
	if len(emails.confirmations) != 1 {
		t.Errorf("confirmations after replay = %d, want 1", len(emails.confirmations))
	}
	if len(coupons.used) != 1 {
		t.Errorf("coupon uses after replay = %d, want 1", len(coupons.used))
	}
}

func TestHandleCheckoutSessionCompleted_FallsBackToMetadata(t *testing.T) {
	t.Parallel()

	// The session id was never stamped onto the order (the write after
	// session creation failed), so resolution goes through metadata.
	order := pendingOrder("")
	service, store, _, _, _ := newReconcileFixture(order)

	payload := completedPayload("cs_test_9", order.ID)
	if err := service.HandleCheckoutSessionCompleted(t.Context(), payload); err != nil {
		t.Fatalf("HandleCheckoutSessionCompleted() error = %v", err)
	}

	got, _ := store.GetByID(t.Context(), order.ID)
	if got.Status != models.StatusProcessing {
		t.Fatalf("Status = %s, want processing", got.Status)
	}
}

func TestHandleCheckoutSessionExpired_ReleasesStock(t *testing.T) {
	t.Parallel()

	order := pendingOrder("cs_test_2")
	service, store, _, _, _ := newReconcileFixture(order)

	payload := []byte(`{"id":"cs_test_2"}`)
	if err := service.HandleCheckoutSessionExpired(t.Context(), payload); err != nil {
		t.Fatalf("HandleCheckoutSessionExpired() error = %v", err)
	}

	got, _ := store.GetByID(t.Context(), order.ID)
	if got.Status != models.StatusCancelled {
		t.Fatalf("Status = %s, want cancelled", got.Status)
	}
	if len(store.restocked) != 1 || store.restocked[0] != order.ID {
		t.Errorf("restocked orders = %v, want [%s]", store.restocked, order.ID)
	}

	// Replay after settlement: already cancelled, stock must not be
	// restored twice.
	if err := service.HandleCheckoutSessionExpired(t.Context(), payload); err != nil {
		t.Fatalf("replayed expiry error = %v", err)
	}
	if len(store.restocked) != 1 {
		t.Errorf("restocked orders after replay = %d, want 1", len(store.restocked))
	}
}

func TestHandleCheckoutSessionExpired_FailedRestockLeavesOrderRetryable(t *testing.T) {
	t.Parallel()

	order := pendingOrder("cs_test_7")
	service, store, _, _, _ := newReconcileFixture(order)
	store.restockErr = errors.New("connection reset")

	payload := []byte(`{"id":"cs_test_7"}`)
	if err := service.HandleCheckoutSessionExpired(t.Context(), payload); err == nil {
		t.Fatal("expected error from failed restock")
	}

	// Cancellation and restocking commit together, so after the failure
	// the order is still pending and a redelivery releases the stock.
	got, _ := store.GetByID(t.Context(), order.ID)
	if got.Status != models.StatusPending {
		t.Fatalf("Status = %s, want pending after rolled back release", got.Status)
	}

	if err := service.HandleCheckoutSessionExpired(t.Context(), payload); err != nil {
		t.Fatalf("retried expiry error = %v", err)
	}
	got, _ = store.GetByID(t.Context(), order.ID)
	if got.Status != models.StatusCancelled {
		t.Fatalf("Status = %s, want cancelled after retry", got.Status)
	}
	if len(store.restocked) != 1 {
		t.Errorf("restocked orders = %d, want exactly 1", len(store.restocked))
	}
}

func TestHandleCheckoutSessionExpired_IgnoresSettledOrder(t *testing.T) {
	t.Parallel()

	order := pendingOrder("cs_test_3")
	order.Status = models.StatusShipped
	service, store, _, _, _ := newReconcileFixture(order)

	if err := service.HandleCheckoutSessionExpired(t.Context(), []byte(`{"id":"cs_test_3"}`)); err != nil {
		t.Fatalf("HandleCheckoutSessionExpired() error = %v", err)
	}

	got, _ := store.GetByID(t.Context(), order.ID)
	if got.Status != models.StatusShipped {
		t.Fatalf("Status = %s, want shipped untouched", got.Status)
	}
	if len(store.restocked) != 0 {
		t.Errorf("no stock restore expected, got %v", store.restocked)
	}
}

func TestVerifySession_PaidSettlesOrder(t *testing.T) {
	t.Parallel()

	order := pendingOrder("cs_test_4")
	service, store, _, gateway, emails := newReconcileFixture(order)
	gateway.session = &stripe.Session{
		ID:              "cs_test_4",
		PaymentStatus:   "paid",
		PaymentIntentID: "pi_test_4",
		OrderID:         order.ID,
	}

	result, err := service.VerifySession(t.Context(), "cs_test_4")
	if err != nil {
		t.Fatalf("VerifySession() error = %v", err)
	}
	if result.Status != string(models.StatusProcessing) {
		t.Errorf("Status = %s, want processing", result.Status)
	}
	if result.OrderID != order.ID {
		t.Errorf("OrderID = %s, want %s", result.OrderID, order.ID)
	}

	got, _ := store.GetByID(t.Context(), order.ID)
	if got.Status != models.StatusProcessing {
		t.Fatalf("order status = %s, want processing", got.Status)
	}
	if len(emails.confirmations) != 1 {
		t.Errorf("confirmations = %d, want 1", len(emails.confirmations))
	}

	// The webhook arriving afterwards loses the race quietly.
	if err := service.HandleCheckoutSessionCompleted(t.Context(), completedPayload("cs_test_4", order.ID)); err != nil {
		t.Fatalf("late webhook error = %v", err)
	}
	if len(emails.confirmations) != 1 {
		t.Errorf("confirmations after late webhook = %d, want 1", len(emails.confirmations))
	}
}

func TestVerifySession_UnpaidLeavesOrderPending(t *testing.T) {
	t.Parallel()

	order := pendingOrder("cs_test_5")
	service, store, _, gateway, emails := newReconcileFixture(order)
	gateway.session = &stripe.Session{
		ID:            "cs_test_5",
		PaymentStatus: "unpaid",
		OrderID:       order.ID,
	}

	result, err := service.VerifySession(t.Context(), "cs_test_5")
	if err != nil {
		t.Fatalf("VerifySession() error = %v", err)
	}
	if result.Status != string(models.StatusPending) {
		t.Errorf("Status = %s, want pending", result.Status)
	}

	got, _ := store.GetByID(t.Context(), order.ID)
	if got.Status != models.StatusPending {
		t.Fatalf("order status = %s, want pending", got.Status)
	}
	if len(emails.confirmations) != 0 {
		t.Errorf("no confirmation expected, got %d", len(emails.confirmations))
	}
}
