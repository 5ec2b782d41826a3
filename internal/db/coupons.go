package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cromashop/croma/internal/models"
)

// Coupon rejection reasons. Checkout treats all of them as "ignore the code";
// the validation endpoint surfaces them to the storefront.
var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponInactive  = errors.New("coupon is not active")
	ErrCouponExpired   = errors.New("coupon has expired")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	ErrCouponMinAmount = errors.New("cart total below coupon minimum")
)

type CouponStore struct {
	pool *pgxpool.Pool
}

func NewCouponStore(pool *pgxpool.Pool) *CouponStore {
	return &CouponStore{pool: pool}
}

// Validate checks a code against a cart total and returns the coupon when it
// applies. Codes are matched case-insensitively.
func (s *CouponStore) Validate(ctx context.Context, code string, totalCents int64) (*models.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrCouponNotFound
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, code, discount_type, value, min_amount_cents, usage_limit, usage_count, active, expires_at
		FROM coupons
		WHERE UPPER(code) = $1`, code)

	var (
		coupon    models.Coupon
		expiresAt pgtype.Timestamptz
	)
	if err := row.Scan(&coupon.ID, &coupon.Code, &coupon.DiscountType, &coupon.Value,
		&coupon.MinAmountCents, &coupon.UsageLimit, &coupon.UsageCount, &coupon.Active, &expiresAt); err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	if expiresAt.Valid {
		coupon.ExpiresAt = expiresAt.Time
	}

	switch {
	case !coupon.Active:
		return nil, ErrCouponInactive
	case !coupon.ExpiresAt.IsZero() && coupon.ExpiresAt.Before(time.Now()):
		return nil, ErrCouponExpired
	case coupon.UsageLimit > 0 && coupon.UsageCount >= coupon.UsageLimit:
		return nil, ErrCouponExhausted
	case coupon.MinAmountCents > 0 && totalCents < coupon.MinAmountCents:
		return nil, ErrCouponMinAmount
	}

	return &coupon, nil
}

// RecordUse bumps the usage counter after a coupon was applied to an order.
// The guard keeps a race from pushing the counter past the cap.
func (s *CouponStore) RecordUse(ctx context.Context, code string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE coupons
		SET usage_count = usage_count + 1
		WHERE UPPER(code) = UPPER($1)
		  AND (usage_limit = 0 OR usage_count < usage_limit)`, code)
	return err
}
