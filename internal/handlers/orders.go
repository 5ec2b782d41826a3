package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

type cancelOrderRequest struct {
	OrderID string `json:"orderId"`
}

// CancelOrder handles POST /api/orders/cancel.
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireIdentity(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req cancelOrderRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid order id")
		return
	}

	if err := h.orderActions.Cancel(r.Context(), identity, orderID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Order cancelled",
	})
}

// ClaimOrders handles POST /api/auth/claim-orders: guest orders placed with
// the caller's email are attached to their account.
func (h *Handlers) ClaimOrders(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireIdentity(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	claimed, err := h.orderActions.ClaimOrders(r.Context(), identity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"claimed": claimed,
	})
}
