package handlers

import (
	"errors"
	"net/http"

	"github.com/cromashop/croma/internal/db"
)

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/newsletter. Re-subscribing an address that is
// already on the list reports success so the form never leaks membership.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.marketingService.Subscribe(r.Context(), req.Email); err != nil && !errors.Is(err, db.ErrAlreadySubscribed) {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Subscribed",
	})
}
