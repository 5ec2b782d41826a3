package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/services"
)

// ReturnableItems handles GET /api/orders/returnable-items?orderId=...
func (h *Handlers) ReturnableItems(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireIdentity(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	orderID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("orderId")))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid order id")
		return
	}

	items, err := h.returnService.ReturnableItems(r.Context(), identity, orderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	type itemResponse struct {
		OrderItemID  string  `json:"orderItemId"`
		ProductName  string  `json:"productName"`
		ProductImage string  `json:"productImage"`
		Size         string  `json:"size"`
		Quantity     int     `json:"quantity"`
		Price        float64 `json:"price"`
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemResponse{
			OrderItemID:  item.OrderItemID.String(),
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Size:         item.Size,
			Quantity:     item.Quantity,
			Price:        centsToEuros(item.PriceCents),
		})
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{"items": out})
}

type createReturnRequest struct {
	OrderID string   `json:"orderId"`
	Reason  string   `json:"reason"`
	Details string   `json:"details"`
	Images  []string `json:"images"`
	// Items holds order item ids; a return always claims the full line.
	Items []string `json:"items"`
}

// CreateReturn handles POST /api/returns.
func (h *Handlers) CreateReturn(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireIdentity(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req createReturnRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid order id")
		return
	}

	items := make([]services.ReturnItemInput, 0, len(req.Items))
	for _, rawID := range req.Items {
		itemID, parseErr := uuid.Parse(rawID)
		if parseErr != nil {
			h.writeError(w, r, http.StatusBadRequest, "Invalid order item id")
			return
		}
		items = append(items, services.ReturnItemInput{OrderItemID: itemID})
	}

	request, err := h.returnService.Create(r.Context(), identity, services.ReturnInput{
		OrderID: orderID,
		Reason:  req.Reason,
		Details: req.Details,
		Images:  req.Images,
		Items:   items,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Return request created",
		"returnId": request.ID.String(),
	})
}
