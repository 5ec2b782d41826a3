package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/services"
)

type updateStatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// AdminUpdateOrderStatus handles POST /api/admin/orders/status.
func (h *Handlers) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireIdentity(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid order id")
		return
	}

	if err := h.orderActions.AdminUpdateStatus(r.Context(), identity, orderID, models.OrderStatus(req.Status)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Status updated",
	})
}

type updateReturnStatusRequest struct {
	ReturnID string `json:"returnId"`
	Status   string `json:"status"`
}

// AdminUpdateReturnStatus handles POST /api/admin/returns/status.
func (h *Handlers) AdminUpdateReturnStatus(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireIdentity(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req updateReturnStatusRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	returnID, err := uuid.Parse(req.ReturnID)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid return id")
		return
	}

	if err := h.returnService.AdminUpdateStatus(r.Context(), identity, returnID, models.ReturnStatus(req.Status)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Status updated",
	})
}

type marketingSendRequest struct {
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	TestEmail string `json:"testEmail"`
}

// AdminSendMarketing handles POST /api/admin/marketing.
func (h *Handlers) AdminSendMarketing(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireIdentity(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req marketingSendRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	sent, err := h.marketingService.SendCampaign(r.Context(), identity, services.CampaignInput{
		Subject:   req.Subject,
		HTML:      req.HTML,
		TestEmail: req.TestEmail,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"sent":    sent,
	})
}
