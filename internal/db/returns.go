package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cromashop/croma/internal/models"
)

// ErrItemAlreadyClaimed is returned when a return request references an order
// item that a prior request already claimed. Backed by the unique constraint
// on return_request_items.order_item_id, so the check holds under races too.
var ErrItemAlreadyClaimed = errors.New("order item already claimed by a return request")

type ReturnStore struct {
	pool *pgxpool.Pool
}

func NewReturnStore(pool *pgxpool.Pool) *ReturnStore {
	return &ReturnStore{pool: pool}
}

// Create persists the return header and its item links in one transaction.
func (s *ReturnStore) Create(ctx context.Context, request *models.ReturnRequest) error {
	if len(request.Items) == 0 {
		return fmt.Errorf("return request has no items")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO return_requests (order_id, user_id, reason, details, images, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		request.OrderID, request.UserID, request.Reason, request.Details,
		request.Images, string(request.Status))
	if err := row.Scan(&request.ID, &request.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert return request: %w", err)
	}

	for i := range request.Items {
		item := &request.Items[i]
		item.ReturnRequestID = request.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO return_request_items (return_request_id, order_item_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id`,
			item.ReturnRequestID, item.OrderItemID, item.Quantity,
		).Scan(&item.ID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrItemAlreadyClaimed, item.OrderItemID)
			}
			return fmt.Errorf("failed to insert return request item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// UpdateStatus moves a return request to a new resolution status.
func (s *ReturnStore) UpdateStatus(ctx context.Context, returnID uuid.UUID, status models.ReturnStatus) error {
	cmdTag, err := s.pool.Exec(ctx,
		`UPDATE return_requests SET status = $1 WHERE id = $2`,
		string(status), returnID)
	if err != nil {
		return fmt.Errorf("failed to update return status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimedItemIDs returns the order item ids already referenced by any return
// request for the given order.
func (s *ReturnStore) ClaimedItemIDs(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ri.order_item_id
		FROM return_request_items ri
		JOIN return_requests r ON r.id = ri.return_request_id
		WHERE r.order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claimed := make(map[uuid.UUID]bool)
	for rows.Next() {
		var itemID uuid.UUID
		if err := rows.Scan(&itemID); err != nil {
			return nil, err
		}
		claimed[itemID] = true
	}
	return claimed, rows.Err()
}
