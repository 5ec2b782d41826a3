package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/models"
	"github.com/cromashop/croma/internal/services"
)

// checkoutItemRequest mirrors a storefront cart line. Name, slug and image
// are display data; the server re-reads them from the catalog.
type checkoutItemRequest struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Price     float64 `json:"price"`
	Size      string  `json:"size"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

type checkoutAddressRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type checkoutRequest struct {
	Items   []checkoutItemRequest  `json:"items"`
	Address checkoutAddressRequest `json:"shippingAddress"`
	// Origin is accepted for compatibility with the storefront client; the
	// redirect URLs are always built from the configured base URL.
	Origin     string `json:"origin"`
	GuestEmail string `json:"guestEmail"`
	CouponCode string `json:"couponCode"`
	Notes      string `json:"notes"`
}

type checkoutResponse struct {
	SessionID string `json:"id"`
	URL       string `json:"url"`
	OrderID   string `json:"orderId"`
}

// Checkout handles POST /api/checkout. Cart prices arrive as decimal euros
// and are re-checked against the catalog server-side.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identityFromRequest(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req checkoutRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	items := make([]services.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, parseErr := uuid.Parse(item.ProductID)
		if parseErr != nil {
			h.writeError(w, r, http.StatusBadRequest, "Invalid product id")
			return
		}
		items = append(items, services.CheckoutItem{
			ProductID:      productID,
			Size:           item.Size,
			Quantity:       item.Quantity,
			UnitPriceCents: eurosToCents(item.Price),
		})
	}

	result, err := h.checkoutService.Checkout(r.Context(), services.CheckoutInput{
		Identity:   identity,
		GuestEmail: req.GuestEmail,
		Items:      items,
		Address: models.ShippingAddress{
			Name:       req.Address.Name,
			Email:      req.Address.Email,
			Phone:      req.Address.Phone,
			Address:    req.Address.Address,
			City:       req.Address.City,
			PostalCode: req.Address.PostalCode,
			Country:    req.Address.Country,
		},
		CouponCode: req.CouponCode,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, checkoutResponse{
		SessionID: result.SessionID,
		URL:       result.CheckoutURL,
		OrderID:   result.OrderID.String(),
	})
}

type resumeRequest struct {
	OrderID string `json:"orderId"`
	Origin  string `json:"origin"`
}

// ResumeCheckout handles POST /api/checkout/resume for pending orders whose
// payment session was abandoned.
func (h *Handlers) ResumeCheckout(w http.ResponseWriter, r *http.Request) {
	identity, err := h.requireIdentity(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req resumeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid order id")
		return
	}

	result, err := h.orderActions.Resume(r.Context(), identity, orderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"id":  result.SessionID,
		"url": result.CheckoutURL,
	})
}

// VerifySession handles GET /api/verify-session?session_id=... The success
// page polls this until the order settles.
func (h *Handlers) VerifySession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		h.writeError(w, r, http.StatusBadRequest, "session_id is required")
		return
	}

	result, err := h.reconcileService.VerifySession(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}
