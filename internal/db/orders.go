package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cromashop/croma/internal/models"
)

// ErrInvalidStatusTransition is returned when a guarded status update matched
// no row, meaning another writer got there first or the transition is not
// allowed from the current status.
var ErrInvalidStatusTransition = errors.New("invalid order status transition")

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `id, user_id, guest, status, total_cents, shipping_address,
	stripe_session_id, stripe_payment_intent_id, coupon_code, discount_cents,
	notes, created_at, updated_at, paid_at`

// Create persists the order header and its line items in one transaction.
// The item snapshots (name, image, price) are whatever the caller set; they
// are never touched again after this insert.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	if len(order.Items) == 0 {
		return fmt.Errorf("order has no items")
	}

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, guest, status, total_cents, shipping_address, coupon_code, discount_cents, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		order.UserID, order.Guest, string(order.Status), order.TotalCents, addressJSON,
		textOrNil(order.CouponCode), order.DiscountCents, order.Notes,
	)
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, product_image, size, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.OrderID, item.ProductID, item.ProductName, item.ProductImage,
			item.Size, item.Quantity, item.PriceCents,
		).Scan(&item.ID); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Delete removes an order; order_items cascade at the storage layer. Used by
// the checkout rollback path only.
func (s *OrderStore) Delete(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	return err
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderStore) GetByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1`, sessionID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// SetStripeSession links a freshly created checkout session to the order.
func (s *OrderStore) SetStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE orders SET stripe_session_id = $1, updated_at = NOW() WHERE id = $2`,
		sessionID, orderID)
	return err
}

// MarkProcessing flips a pending order to processing exactly once. Both
// reconciliation paths (webhook and client polling) race through here; the
// conditional update decides the winner and the loser gets
// ErrInvalidStatusTransition.
func (s *OrderStore) MarkProcessing(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, stripe_payment_intent_id = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status = 'pending'`,
		models.StatusProcessing, textOrNil(paymentIntentID), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending", ErrInvalidStatusTransition)
	}
	return nil
}

// CancelAndRestock cancels an order that has not shipped yet and puts its
// reserved units back on the shelf, both inside one transaction. A failed
// restore rolls the status flip back too, so a later retry finds the order
// still cancellable and no unit is ever restored twice or lost.
func (s *OrderStore) CancelAndRestock(ctx context.Context, orderID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'processing')`,
		models.StatusCancelled, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending/processing", ErrInvalidStatusTransition)
	}

	if err := restoreOrderLines(ctx, tx, orderID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateStatus applies an admin transition. The shipped/delivered lock is
// enforced here in SQL so no competing writer can slip a cancelled order past
// a concurrent shipment.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("unknown order status: %s", status)
	}

	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2`
	if status == models.StatusPending || status == models.StatusCancelled {
		query += ` AND status NOT IN ('shipped', 'delivered')`
	}

	cmdTag, err := s.pool.Exec(ctx, query, string(status), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order is shipped or delivered", ErrInvalidStatusTransition)
	}
	return nil
}

// ClaimGuestOrders re-assigns guest orders whose shipping email matches the
// given address to the authenticated user. Returns the number claimed.
func (s *OrderStore) ClaimGuestOrders(ctx context.Context, userID uuid.UUID, email string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, fmt.Errorf("email is required")
	}

	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET user_id = $1, guest = FALSE, updated_at = NOW()
		WHERE user_id IS NULL AND guest AND LOWER(shipping_address->>'email') = LOWER($2)`,
		userID, email)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// GetItems returns the line items of an order.
func (s *OrderStore) GetItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, product_image, size, quantity, price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.ProductImage, &item.Size, &item.Quantity, &item.PriceCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *OrderStore) loadItems(ctx context.Context, order *models.Order) error {
	items, err := s.GetItems(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Items = items
	return nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order           models.Order
		userID          pgtype.UUID
		addressJSON     []byte
		sessionID       pgtype.Text
		paymentIntentID pgtype.Text
		couponCode      pgtype.Text
		paidAt          pgtype.Timestamptz
	)

	if err := row.Scan(&order.ID, &userID, &order.Guest, &order.Status, &order.TotalCents,
		&addressJSON, &sessionID, &paymentIntentID, &couponCode, &order.DiscountCents,
		&order.Notes, &order.CreatedAt, &order.UpdatedAt, &paidAt); err != nil {
		return nil, err
	}

	if userID.Valid {
		id := uuid.UUID(userID.Bytes)
		order.UserID = &id
	}
	if sessionID.Valid {
		order.StripeSessionID = sessionID.String
	}
	if paymentIntentID.Valid {
		order.StripePaymentIntentID = paymentIntentID.String
	}
	if couponCode.Valid {
		order.CouponCode = couponCode.String
	}
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}
	if len(addressJSON) > 0 {
		if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}

	return &order, nil
}

func textOrNil(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}
