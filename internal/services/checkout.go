package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/auth"
	"github.com/cromashop/croma/internal/logging"
	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/observability"
	"github.com/cromashop/croma/internal/stripe"
)

type checkoutProductStore interface {
	GetByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type checkoutOrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, orderID uuid.UUID) error
	SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
}

type stockReserver interface {
	Reserve(ctx context.Context, productID uuid.UUID, size string, quantity int) error
	Restore(ctx context.Context, productID uuid.UUID, size string, quantity int) error
}

type couponValidator interface {
	Validate(ctx context.Context, code string, totalCents int64) (*models.Coupon, error)
}

type checkoutGateway interface {
	CreateCheckoutSession(ctx context.Context, params stripe.SessionParams) (*stripe.Session, error)
}

type CheckoutService struct {
	products  checkoutProductStore
	orders    checkoutOrderStore
	inventory stockReserver
	coupons   couponValidator
	gateway   checkoutGateway
	baseURL   string
	logger    *slog.Logger
}

func NewCheckoutService(products checkoutProductStore, orders checkoutOrderStore, inventory stockReserver, coupons couponValidator, gateway checkoutGateway, baseURL string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		products:  products,
		orders:    orders,
		inventory: inventory,
		coupons:   coupons,
		gateway:   gateway,
		baseURL:   baseURL,
		logger:    logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// CheckoutItem is one cart line as submitted by the storefront. The unit
// price is the price the customer saw; it is checked against the catalog and
// never used for charging.
type CheckoutItem struct {
	ProductID      uuid.UUID
	Size           string
	Quantity       int
	UnitPriceCents int64
}

type CheckoutInput struct {
	Identity   *auth.Identity
	GuestEmail string
	Items      []CheckoutItem
	Address    models.ShippingAddress
	CouponCode string
	Notes      string
}

type CheckoutResult struct {
	OrderID     uuid.UUID
	SessionID   string
	CheckoutURL string
}

// Checkout validates and re-prices the cart, creates a pending order,
// reserves stock line by line and opens a payment session. Any failure after
// reservations started rolls the already reserved lines back and deletes the
// order so abandoned carts never hold stock.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.checkout",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("Checkout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("checkout.started", 1)
	recordFailure := func(reason string) {
		meter.Count("checkout.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	// Cart problems are reported before authentication problems, so an
	// anonymous caller with a broken cart sees the cart error.
	if err := validateCartItems(input.Items); err != nil {
		recordFailure("invalid_input")
		return nil, err
	}

	if input.Identity == nil {
		guestEmail := strings.TrimSpace(input.GuestEmail)
		if guestEmail == "" {
			recordFailure("no_identity")
			return nil, fmt.Errorf("%w: sign in or provide a guest email", ErrUnauthorized)
		}
		if strings.TrimSpace(input.Address.Email) == "" {
			input.Address.Email = guestEmail
		}
	}

	if err := validateShippingAddress(input.Address); err != nil {
		recordFailure("invalid_input")
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		recordFailure("product_lookup_failed")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	order := &models.Order{
		Status:          models.StatusPending,
		ShippingAddress: input.Address,
		Notes:           strings.TrimSpace(input.Notes),
	}
	if input.Identity != nil {
		userID := input.Identity.UserID
		order.UserID = &userID
	} else {
		order.Guest = true
	}

	var subtotal int64
	for _, item := range input.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.Active {
			recordFailure("unknown_product")
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
		}
		if item.UnitPriceCents != product.PriceCents {
			recordFailure("price_mismatch")
			return nil, fmt.Errorf("%w: %s priced %d, catalog says %d",
				ErrPriceMismatch, product.Slug, item.UnitPriceCents, product.PriceCents)
		}

		subtotal += product.PriceCents * int64(item.Quantity)
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.MainImage(),
			Size:         item.Size,
			Quantity:     item.Quantity,
			PriceCents:   product.PriceCents,
		})
	}

	order.TotalCents = subtotal
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		coupon, couponErr := s.coupons.Validate(ctx, code, subtotal)
		if couponErr != nil {
			// An invalid coupon never blocks checkout; the customer just
			// pays full price.
			logger.Info("ignoring invalid coupon", "code", code, "error", couponErr)
		} else {
			order.CouponCode = coupon.Code
			order.DiscountCents = coupon.DiscountFor(subtotal)
			order.TotalCents = subtotal - order.DiscountCents
		}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		recordFailure("order_create_failed")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.reserveItems(ctx, order); err != nil {
		recordFailure("insufficient_stock")
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, buildSessionParams(order, s.baseURL, false))
	if err != nil {
		recordFailure("gateway_failed")
		s.releaseOrder(ctx, order, len(order.Items))
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	if err := s.orders.SetStripeSession(ctx, order.ID, session.ID); err != nil {
		// The session exists and the customer can still pay; reconciliation
		// falls back to the order id in the session metadata.
		logger.Error("failed to record session on order", "error", err, "order_id", order.ID, "session_id", session.ID)
	}

	meter.Count("checkout.session_created", 1)
	logger.Info("checkout session created",
		"order_id", order.ID,
		"session_id", session.ID,
		"total_cents", order.TotalCents,
		"guest", order.Guest)

	return &CheckoutResult{
		OrderID:     order.ID,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// reserveItems claims stock for every order line. On the first failure it
// restores the lines reserved so far and deletes the order.
func (s *CheckoutService) reserveItems(ctx context.Context, order *models.Order) error {
	for i, item := range order.Items {
		if err := s.inventory.Reserve(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			s.releaseOrder(ctx, order, i)
			return err
		}
	}
	return nil
}

// releaseOrder undoes a partially or fully reserved order: the first
// reserved line items are restored and the order row is removed.
func (s *CheckoutService) releaseOrder(ctx context.Context, order *models.Order, reserved int) {
	logger := s.loggerFromContext(ctx)
	for _, item := range order.Items[:reserved] {
		if err := s.inventory.Restore(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			logger.Error("failed to restore reserved stock",
				"error", err,
				"order_id", order.ID,
				"product_id", item.ProductID,
				"size", item.Size)
		}
	}
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		logger.Error("failed to delete abandoned order", "error", err, "order_id", order.ID)
	}
}

// buildSessionParams turns a stored order into gateway line items. A coupon
// discount is passed separately for the gateway's discount mechanism, never
// as a line item, so the charged amount still matches the persisted total.
func buildSessionParams(order *models.Order, baseURL string, resumed bool) stripe.SessionParams {
	items := make([]stripe.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, stripe.LineItem{
			Name:            fmt.Sprintf("%s (%s)", item.ProductName, item.Size),
			Image:           item.ProductImage,
			UnitAmountCents: item.PriceCents,
			Quantity:        int64(item.Quantity),
		})
	}
	userID := ""
	if order.UserID != nil {
		userID = order.UserID.String()
	}

	params := stripe.SessionParams{
		OrderID:       order.ID,
		UserID:        userID,
		CustomerEmail: order.ShippingAddress.Email,
		Origin:        baseURL,
		Items:         items,
		Resumed:       resumed,
	}
	if order.DiscountCents > 0 {
		params.DiscountCents = order.DiscountCents
		params.DiscountName = fmt.Sprintf("Discount (%s)", order.CouponCode)
	}
	return params
}

func validateCartItems(items []CheckoutItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrEmptyCart)
		}
		if strings.TrimSpace(item.Size) == "" {
			return fmt.Errorf("%w: size is required", ErrUnknownProduct)
		}
	}
	return nil
}

func validateShippingAddress(addr models.ShippingAddress) error {
	for _, field := range []string{addr.Name, addr.Email, addr.Address, addr.City, addr.PostalCode, addr.Country} {
		if strings.TrimSpace(field) == "" {
			return ErrInvalidAddress
		}
	}
	if !strings.Contains(addr.Email, "@") {
		return fmt.Errorf("%w: invalid email", ErrInvalidAddress)
	}
	return nil
}
