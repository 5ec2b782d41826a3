package handlers

import (
	"errors"
	"net/http"

	"github.com/cromashop/croma/internal/db"
)

type validateCouponRequest struct {
	Code  string  `json:"code"`
	Total float64 `json:"total"`
}

// ValidateCoupon handles POST /api/coupons/validate. The storefront shows the
// quoted discount before checkout; the checkout itself re-validates.
func (h *Handlers) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := h.couponService.Quote(r.Context(), req.Code, eurosToCents(req.Total))
	if err != nil {
		if isCouponRejection(err) {
			h.writeJSON(w, r, http.StatusOK, map[string]any{
				"valid":   false,
				"message": err.Error(),
			})
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"valid":        true,
		"code":         quote.Code,
		"discountType": quote.DiscountType,
		"discount":     centsToEuros(quote.DiscountCents),
		"newTotal":     centsToEuros(quote.TotalCents),
	})
}

func isCouponRejection(err error) bool {
	return errors.Is(err, db.ErrCouponNotFound) ||
		errors.Is(err, db.ErrCouponInactive) ||
		errors.Is(err, db.ErrCouponExpired) ||
		errors.Is(err, db.ErrCouponExhausted) ||
		errors.Is(err, db.ErrCouponMinAmount)
}
