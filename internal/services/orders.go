package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/auth"
	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/logging"
	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/observability"
)

type actionOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
	CancelAndRestock(ctx context.Context, orderID uuid.UUID) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) error
	ClaimGuestOrders(ctx context.Context, userID uuid.UUID, email string) (int64, error)
}

// OrderActionsService covers the customer and admin order operations that
// happen after checkout: cancellation, payment resumption, guest order
// claiming and fulfilment status changes.
type OrderActionsService struct {
	orders      actionOrderStore
	gateway     checkoutGateway
	emailSender OrderEmailSender
	baseURL     string
	logger      *slog.Logger
}

func NewOrderActionsService(orders actionOrderStore, gateway checkoutGateway, emailSender OrderEmailSender, baseURL string, logger *slog.Logger) *OrderActionsService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &OrderActionsService{
		orders:      orders,
		gateway:     gateway,
		emailSender: emailSender,
		baseURL:     baseURL,
		logger:      logger,
	}
}

func (s *OrderActionsService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Cancel cancels a pending or processing order owned by the caller and puts
// its stock back on the shelf. Shipped and delivered orders are immutable.
func (s *OrderActionsService) Cancel(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) error {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.authorizedOrder(ctx, identity, orderID)
	if err != nil {
		return err
	}

	if err := s.orders.CancelAndRestock(ctx, order.ID); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			return fmt.Errorf("%w: order is %s", ErrOrderNotCancellable, order.Status)
		}
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	meter.Count("order.cancelled", 1)
	logger.Info("order cancelled", "order_id", order.ID)

	if err := s.emailSender.SendOrderStatusUpdate(ctx, order, models.StatusCancelled); err != nil {
		logger.Error("failed to send cancellation email", "error", err, "order_id", order.ID)
	}

	return nil
}

// ResumeResult carries the fresh payment session for an unpaid order.
type ResumeResult struct {
	SessionID   string
	CheckoutURL string
}

// Resume opens a new payment session for a pending order whose original
// session was abandoned. The stock is still reserved, so the order is
// rebuilt from its stored lines rather than the client cart.
func (s *OrderActionsService) Resume(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) (*ResumeResult, error) {
	logger := s.loggerFromContext(ctx)

	order, err := s.authorizedOrder(ctx, identity, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotResumable, order.Status)
	}
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrOrderNotResumable)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, buildSessionParams(order, s.baseURL, true))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	if err := s.orders.SetStripeSession(ctx, order.ID, session.ID); err != nil {
		logger.Error("failed to record resumed session on order", "error", err, "order_id", order.ID, "session_id", session.ID)
	}

	logger.Info("checkout resumed", "order_id", order.ID, "session_id", session.ID)
	return &ResumeResult{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// AdminUpdateStatus moves an order to an explicit fulfilment status. Moving a
// shipped or delivered order back to pending or cancelled is refused by the
// store layer. Cancellation goes through the same guarded transition as the
// customer path, so the stock of a concurrently cancelled order is never
// restored twice.
func (s *OrderActionsService) AdminUpdateStatus(ctx context.Context, identity *auth.Identity, orderID uuid.UUID, status models.OrderStatus) error {
	logger := s.loggerFromContext(ctx)

	if identity == nil {
		return ErrUnauthorized
	}
	if !identity.Admin {
		return ErrForbidden
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}

	if status == models.StatusCancelled {
		err = s.orders.CancelAndRestock(ctx, orderID)
	} else {
		err = s.orders.UpdateStatus(ctx, orderID, status)
	}
	if err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			return fmt.Errorf("%w: order is %s", ErrInvalidStatus, order.Status)
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	logger.Info("order status updated", "order_id", orderID, "from", order.Status, "to", status)

	if err := s.emailSender.SendOrderStatusUpdate(ctx, order, status); err != nil {
		logger.Error("failed to send status update email", "error", err, "order_id", orderID, "status", status)
	}

	return nil
}

// ClaimOrders attaches the caller's guest orders (matched by shipping email)
// to their account. Returns how many orders were claimed.
func (s *OrderActionsService) ClaimOrders(ctx context.Context, identity *auth.Identity) (int64, error) {
	if identity == nil {
		return 0, ErrUnauthorized
	}
	if identity.Email == "" {
		return 0, fmt.Errorf("%w: account has no email", ErrForbidden)
	}

	claimed, err := s.orders.ClaimGuestOrders(ctx, identity.UserID, identity.Email)
	if err != nil {
		return 0, fmt.Errorf("failed to claim orders: %w", err)
	}

	if claimed > 0 {
		s.loggerFromContext(ctx).Info("guest orders claimed", "user_id", identity.UserID, "count", claimed)
	}
	return claimed, nil
}

// authorizedOrder loads an order and checks the caller may act on it. Admins
// may act on any order; customers only on their own.
func (s *OrderActionsService) authorizedOrder(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if identity.Admin {
		return order, nil
	}
	if order.UserID == nil || *order.UserID != identity.UserID {
		return nil, ErrForbidden
	}
	return order, nil
}
