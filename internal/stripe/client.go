// Package stripe wraps the Stripe checkout session API and webhook
// verification used by the storefront.
package stripe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

const currency = "eur"

// LineItem is one product line of a checkout session, priced in euro cents.
// Stripe rejects negative unit amounts, so discounts never travel as lines;
// see SessionParams.DiscountCents.
type LineItem struct {
	Name            string
	Image           string
	UnitAmountCents int64
	Quantity        int64
}

// SessionParams holds everything needed to open a checkout session. A
// non-zero DiscountCents is applied through the Stripe discounts API (a
// single-use coupon) so the charged amount matches the persisted order total.
type SessionParams struct {
	OrderID       uuid.UUID
	UserID        string
	CustomerEmail string
	Origin        string
	Items         []LineItem
	DiscountCents int64
	DiscountName  string
	Resumed       bool
}

// Session is the subset of the gateway session the storefront cares about.
type Session struct {
	ID              string
	URL             string
	PaymentStatus   string
	PaymentIntentID string
	OrderID         uuid.UUID
}

// Client talks to the Stripe API on behalf of the checkout flow.
type Client struct {
	api *stripe.Client
}

func NewClient(secretKey string) *Client {
	return &Client{api: stripe.NewClient(secretKey)}
}

// CreateCheckoutSession opens a redirect-based payment session. The order id
// travels in the session metadata so reconciliation never has to trust a
// client-supplied order reference.
func (c *Client) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if len(params.Items) == 0 {
		return nil, fmt.Errorf("checkout session needs at least one line item")
	}
	if params.Origin == "" {
		return nil, fmt.Errorf("origin is required for redirect URLs")
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(params.Items))
	for _, item := range params.Items {
		if item.UnitAmountCents < 0 {
			return nil, fmt.Errorf("line item %q has negative unit amount %d", item.Name, item.UnitAmountCents)
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		productData := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmountCents),
			},
			Quantity: stripe.Int64(quantity),
		})
	}

	metadata := map[string]string{
		"order_id": params.OrderID.String(),
		"user_id":  params.UserID,
	}
	if params.Resumed {
		metadata["resumed"] = "true"
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(params.Origin + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(params.Origin + "/checkout/cancel"),
		Metadata:           metadata,
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	if params.DiscountCents > 0 {
		couponID, err := c.createSessionCoupon(ctx, params.DiscountCents, params.DiscountName)
		if err != nil {
			return nil, err
		}
		sessionParams.Discounts = []*stripe.CheckoutSessionCreateDiscountParams{
			{Coupon: stripe.String(couponID)},
		}
	}

	sess, err := c.api.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sessionFromAPI(sess), nil
}

// createSessionCoupon mints a single-use amount-off coupon that carries an
// order's discount onto its checkout session. Stripe has no per-session
// discount amount, so each discounted session gets its own coupon object.
func (c *Client) createSessionCoupon(ctx context.Context, amountCents int64, name string) (string, error) {
	if name == "" {
		name = "Discount"
	}
	coupon, err := c.api.V1Coupons.Create(ctx, &stripe.CouponCreateParams{
		AmountOff: stripe.Int64(amountCents),
		Currency:  stripe.String(currency),
		Duration:  stripe.String(string(stripe.CouponDurationOnce)),
		Name:      stripe.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create discount coupon: %w", err)
	}
	return coupon.ID, nil
}

// GetCheckoutSession fetches the authoritative session state from the
// gateway. The polling reconciliation path relies on this instead of any
// client-reported payment status.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*Session, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	sess, err := c.api.V1CheckoutSessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	return sessionFromAPI(sess), nil
}

func sessionFromAPI(sess *stripe.CheckoutSession) *Session {
	result := &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
	}
	if sess.PaymentIntent != nil {
		result.PaymentIntentID = sess.PaymentIntent.ID
	}
	if orderIDStr, ok := sess.Metadata["order_id"]; ok {
		if orderID, err := uuid.Parse(orderIDStr); err == nil {
			result.OrderID = orderID
		}
	}
	return result
}
