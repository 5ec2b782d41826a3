package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// IsValid reports whether s is one of the known order statuses.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Locked reports whether s forbids moving the order back to pending or
// cancelled. Once a parcel left the warehouse the order cannot be undone.
func (s OrderStatus) Locked() bool {
	return s == StatusShipped || s == StatusDelivered
}

// ShippingAddress is the structured delivery record stamped onto an order.
type ShippingAddress struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is one checkout attempt. Guest orders have a nil UserID and the
// Guest flag set; their customer correlation is the shipping address email.
type Order struct {
	ID                    uuid.UUID       `json:"id"`
	UserID                *uuid.UUID      `json:"user_id"`
	Guest                 bool            `json:"guest"`
	Status                OrderStatus     `json:"status"`
	TotalCents            int64           `json:"total_cents"`
	ShippingAddress       ShippingAddress `json:"shipping_address"`
	StripeSessionID       string          `json:"stripe_session_id"`
	StripePaymentIntentID string          `json:"stripe_payment_intent_id"`
	CouponCode            string          `json:"coupon_code"`
	DiscountCents         int64           `json:"discount_cents"`
	Notes                 string          `json:"notes"`
	Items                 []OrderItem     `json:"items,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	PaidAt                time.Time       `json:"paid_at"`
}

// OrderItem is one (product, size) line. Name, image and price are snapshots
// taken at purchase time and are never rewritten by later product edits.
type OrderItem struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductImage string    `json:"product_image"`
	Size         string    `json:"size"`
	Quantity     int       `json:"quantity"`
	PriceCents   int64     `json:"price_cents"`
}
