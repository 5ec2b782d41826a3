package models

import (
	"time"

	"github.com/google/uuid"
)

type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "pending"
	ReturnApproved ReturnStatus = "approved"
	ReturnRejected ReturnStatus = "rejected"
	ReturnReceived ReturnStatus = "received"
	ReturnRefunded ReturnStatus = "refunded"
)

func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnPending, ReturnApproved, ReturnRejected, ReturnReceived, ReturnRefunded:
		return true
	}
	return false
}

// ReturnRequest is a post-delivery claim against one or more order items.
type ReturnRequest struct {
	ID        uuid.UUID           `json:"id"`
	OrderID   uuid.UUID           `json:"order_id"`
	UserID    uuid.UUID           `json:"user_id"`
	Reason    string              `json:"reason"`
	Details   string              `json:"details"`
	Images    []string            `json:"images"`
	Status    ReturnStatus        `json:"status"`
	Items     []ReturnRequestItem `json:"items,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// ReturnRequestItem links a return request to one order item. An order item
// can be claimed by at most one request; the store enforces this with a
// unique constraint on order_item_id.
type ReturnRequestItem struct {
	ID              uuid.UUID `json:"id"`
	ReturnRequestID uuid.UUID `json:"return_request_id"`
	OrderItemID     uuid.UUID `json:"order_item_id"`
	Quantity        int       `json:"quantity"`
}
