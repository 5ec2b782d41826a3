package services

import (
	"context"
	"strings"
)

// CouponQuote is the outcome of applying a coupon to a cart total.
type CouponQuote struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
}

// CouponService answers storefront "is this code good for my cart" queries.
type CouponService struct {
	coupons couponValidator
}

func NewCouponService(coupons couponValidator) *CouponService {
	return &CouponService{coupons: coupons}
}

func (s *CouponService) Quote(ctx context.Context, code string, totalCents int64) (*CouponQuote, error) {
	coupon, err := s.coupons.Validate(ctx, strings.TrimSpace(code), totalCents)
	if err != nil {
		return nil, err
	}

	discount := coupon.DiscountFor(totalCents)
	return &CouponQuote{
		Code:          coupon.Code,
		DiscountType:  string(coupon.DiscountType),
		DiscountCents: discount,
		TotalCents:    totalCents - discount,
	}, nil
}
