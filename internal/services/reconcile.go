package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/logging"
	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/observability"
	"github.com/cromashop/croma/internal/stripe"
)

type reconcileOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	MarkProcessing(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error
	CancelAndRestock(ctx context.Context, orderID uuid.UUID) error
}

type couponRecorder interface {
	RecordUse(ctx context.Context, code string) error
}

type sessionFetcher interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.Session, error)
}

// ReconcileService settles pending orders against the payment gateway. Both
// delivery paths (webhook push and success-page polling) funnel into the same
// compare-and-set transition, so a payment is applied exactly once no matter
// how many times or in which order the signals arrive.
type ReconcileService struct {
	orders      reconcileOrderStore
	coupons     couponRecorder
	gateway     sessionFetcher
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewReconcileService(orders reconcileOrderStore, coupons couponRecorder, gateway sessionFetcher, emailSender OrderEmailSender, logger *slog.Logger) *ReconcileService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &ReconcileService{
		orders:      orders,
		coupons:     coupons,
		gateway:     gateway,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *ReconcileService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// HandleCheckoutSessionCompleted applies a paid session to its order. Replays
// and races with the polling path lose the compare-and-set and are ignored.
func (s *ReconcileService) HandleCheckoutSessionCompleted(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("source", "webhook"))

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	order, err := s.findOrder(ctx, session.ID, session.Metadata)
	if err != nil {
		return err
	}

	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	return s.settlePaid(ctx, order, paymentIntentID, meter, logger)
}

// HandleCheckoutSessionExpired releases the stock of an order whose payment
// window closed without a payment.
func (s *ReconcileService) HandleCheckoutSessionExpired(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	order, err := s.findOrder(ctx, session.ID, session.Metadata)
	if err != nil {
		return err
	}

	// Cancellation and restocking commit together; on failure the order
	// stays pending and the next delivery attempt releases everything.
	if err := s.orders.CancelAndRestock(ctx, order.ID); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			logger.Info("ignoring checkout.session.expired, order already settled", "order_id", order.ID, "session_id", session.ID)
			return nil
		}
		return fmt.Errorf("failed to release expired order: %w", err)
	}

	meter.Count("order.expired", 1)
	logger.Info("expired checkout released", "order_id", order.ID, "session_id", session.ID)
	return nil
}

// VerifyResult is what the success page polls for.
type VerifyResult struct {
	Status  string    `json:"status"`
	OrderID uuid.UUID `json:"orderId"`
}

// VerifySession checks a session's payment state directly against the
// gateway. A paid session settles the order through the same transition the
// webhook uses; whoever arrives second finds the work already done.
func (s *ReconcileService) VerifySession(ctx context.Context, sessionID string) (*VerifyResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.reconcile.verify_session",
		sentry.WithOpName("service.reconcile"),
		sentry.WithDescription("VerifySession"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("source", "verify"))

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	order, err := s.orders.GetByStripeSessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) && session.OrderID != uuid.Nil {
			order, err = s.orders.GetByID(ctx, session.OrderID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find order for session: %w", err)
		}
	}

	if session.PaymentStatus != "paid" {
		return &VerifyResult{Status: string(order.Status), OrderID: order.ID}, nil
	}

	if err := s.settlePaid(ctx, order, session.PaymentIntentID, meter, logger); err != nil {
		return nil, err
	}

	return &VerifyResult{Status: string(models.StatusProcessing), OrderID: order.ID}, nil
}

// settlePaid moves an order to processing. Exactly one caller wins the
// transition; only the winner records coupon usage and emails the customer.
func (s *ReconcileService) settlePaid(ctx context.Context, order *models.Order, paymentIntentID string, meter sentry.Meter, logger *slog.Logger) error {
	if err := s.orders.MarkProcessing(ctx, order.ID, paymentIntentID); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			logger.Info("order already settled", "order_id", order.ID)
			return nil
		}
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	meter.Count("order.paid", 1)
	logger.Info("order paid", "order_id", order.ID, "total_cents", order.TotalCents)

	if order.CouponCode != "" {
		if err := s.coupons.RecordUse(ctx, order.CouponCode); err != nil {
			logger.Error("failed to record coupon use", "error", err, "code", order.CouponCode, "order_id", order.ID)
		}
	}

	if err := s.emailSender.SendOrderConfirmation(ctx, order); err != nil {
		logger.Error("failed to send order confirmation email", "error", err, "order_id", order.ID)
	}

	return nil
}

// findOrder resolves a webhook session to its order, falling back to the
// order id carried in the session metadata when the session id was never
// stamped onto the order row.
func (s *ReconcileService) findOrder(ctx context.Context, sessionID string, metadata map[string]string) (*models.Order, error) {
	order, err := s.orders.GetByStripeSessionID(ctx, sessionID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if orderIDStr, ok := metadata["order_id"]; ok {
		if orderID, parseErr := uuid.Parse(orderIDStr); parseErr == nil {
			return s.orders.GetByID(ctx, orderID)
		}
	}

	return nil, fmt.Errorf("no order for session %s: %w", sessionID, err)
}
