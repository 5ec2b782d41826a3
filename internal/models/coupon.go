package models

import (
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a discount code. Fixed coupons carry their value in cents,
// percentage coupons in whole percent.
type Coupon struct {
	ID             uuid.UUID    `json:"id"`
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discount_type"`
	Value          int64        `json:"value"`
	MinAmountCents int64        `json:"min_amount_cents"`
	UsageLimit     int          `json:"usage_limit"`
	UsageCount     int          `json:"usage_count"`
	Active         bool         `json:"active"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

// DiscountFor computes the discount a coupon grants on a total, clamped so
// the discounted total never goes negative.
func (c *Coupon) DiscountFor(totalCents int64) int64 {
	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = totalCents * c.Value / 100
	case DiscountFixed:
		discount = c.Value
	}
	if discount > totalCents {
		return totalCents
	}
	if discount < 0 {
		return 0
	}
	return discount
}
