package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/auth"
	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/logging"
	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/observability"
)

type returnOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type returnStore interface {
	Create(ctx context.Context, request *models.ReturnRequest) error
	ClaimedItemIDs(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]bool, error)
	UpdateStatus(ctx context.Context, returnID uuid.UUID, status models.ReturnStatus) error
}

// ReturnService handles post-delivery return requests. An order item can be
// claimed by at most one return request; the database enforces this even when
// two requests race.
type ReturnService struct {
	orders  returnOrderStore
	returns returnStore
	logger  *slog.Logger
}

func NewReturnService(orders returnOrderStore, returns returnStore, logger *slog.Logger) *ReturnService {
	return &ReturnService{
		orders:  orders,
		returns: returns,
		logger:  logger,
	}
}

func (s *ReturnService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// ReturnableItem is an order line still open for a return request.
type ReturnableItem struct {
	OrderItemID  uuid.UUID `json:"order_item_id"`
	ProductName  string    `json:"product_name"`
	ProductImage string    `json:"product_image"`
	Size         string    `json:"size"`
	Quantity     int       `json:"quantity"`
	PriceCents   int64     `json:"price_cents"`
}

// ReturnableItems lists the caller's delivered order lines that no return
// request has claimed yet.
func (s *ReturnService) ReturnableItems(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) ([]ReturnableItem, error) {
	order, err := s.eligibleOrder(ctx, identity, orderID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.returns.ClaimedItemIDs(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed items: %w", err)
	}

	items := make([]ReturnableItem, 0, len(order.Items))
	for _, item := range order.Items {
		if claimed[item.ID] {
			continue
		}
		items = append(items, ReturnableItem{
			OrderItemID:  item.ID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Size:         item.Size,
			Quantity:     item.Quantity,
			PriceCents:   item.PriceCents,
		})
	}
	return items, nil
}

// ReturnItemInput selects an order line and how many units go back. A zero
// quantity claims the whole line.
type ReturnItemInput struct {
	OrderItemID uuid.UUID
	Quantity    int
}

type ReturnInput struct {
	OrderID uuid.UUID
	Reason  string
	Details string
	Images  []string
	Items   []ReturnItemInput
}

// Create files a return request against a delivered order owned by the
// caller. Every requested line must belong to the order, stay within the
// purchased quantity and be unclaimed by earlier requests.
func (s *ReturnService) Create(ctx context.Context, identity *auth.Identity, input ReturnInput) (*models.ReturnRequest, error) {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.eligibleOrder(ctx, identity, input.OrderID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidReturnItems)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: no items selected", ErrInvalidReturnItems)
	}

	lines := make(map[uuid.UUID]models.OrderItem, len(order.Items))
	for _, item := range order.Items {
		lines[item.ID] = item
	}

	claimed, err := s.returns.ClaimedItemIDs(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed items: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(input.Items))
	requestItems := make([]models.ReturnRequestItem, 0, len(input.Items))
	for _, item := range input.Items {
		line, ok := lines[item.OrderItemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s does not belong to order", ErrInvalidReturnItems, item.OrderItemID)
		}
		if seen[item.OrderItemID] {
			return nil, fmt.Errorf("%w: item %s listed twice", ErrInvalidReturnItems, item.OrderItemID)
		}
		seen[item.OrderItemID] = true
		quantity := item.Quantity
		if quantity == 0 {
			quantity = line.Quantity
		}
		if quantity < 0 || quantity > line.Quantity {
			return nil, fmt.Errorf("%w: quantity for %s must be between 1 and %d", ErrInvalidReturnItems, item.OrderItemID, line.Quantity)
		}
		if claimed[item.OrderItemID] {
			return nil, fmt.Errorf("%w: item %s", db.ErrItemAlreadyClaimed, item.OrderItemID)
		}
		requestItems = append(requestItems, models.ReturnRequestItem{
			OrderItemID: item.OrderItemID,
			Quantity:    quantity,
		})
	}

	request := &models.ReturnRequest{
		OrderID: order.ID,
		UserID:  identity.UserID,
		Reason:  strings.TrimSpace(input.Reason),
		Details: strings.TrimSpace(input.Details),
		Images:  input.Images,
		Status:  models.ReturnPending,
		Items:   requestItems,
	}

	// The pre-check above races with concurrent requests; the unique
	// constraint on the item link is what actually guarantees single-claim.
	if err := s.returns.Create(ctx, request); err != nil {
		if errors.Is(err, db.ErrItemAlreadyClaimed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create return request: %w", err)
	}

	meter.Count("return.requested", 1)
	logger.Info("return request created", "order_id", order.ID, "return_id", request.ID, "items", len(requestItems))
	return request, nil
}

// AdminUpdateStatus resolves a return request: approve or reject it, mark
// the package received or the refund issued.
func (s *ReturnService) AdminUpdateStatus(ctx context.Context, identity *auth.Identity, returnID uuid.UUID, status models.ReturnStatus) error {
	if identity == nil {
		return ErrUnauthorized
	}
	if !identity.Admin {
		return ErrForbidden
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	if err := s.returns.UpdateStatus(ctx, returnID, status); err != nil {
		return fmt.Errorf("failed to update return status: %w", err)
	}

	s.loggerFromContext(ctx).Info("return status updated", "return_id", returnID, "status", status)
	return nil
}

// eligibleOrder loads an order and checks return eligibility: delivered
// status and caller ownership.
func (s *ReturnService) eligibleOrder(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if !identity.Admin {
		if order.UserID == nil || *order.UserID != identity.UserID {
			return nil, ErrForbidden
		}
	}
	if order.Status != models.StatusDelivered {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotReturnable, order.Status)
	}
	return order, nil
}
