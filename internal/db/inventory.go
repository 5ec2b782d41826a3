package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInsufficientStock is returned when a reserve call finds fewer units than
// requested for the given size.
var ErrInsufficientStock = errors.New("insufficient stock")

// InventoryStore is the inventory ledger: the only writer of the per-size
// stock counters. Every mutation is a single conditional UPDATE, so two
// concurrent reservations of the last unit serialize at the storage layer and
// exactly one of them succeeds. No caller may read-modify-write stock.
type InventoryStore struct {
	pool *pgxpool.Pool
}

func NewInventoryStore(pool *pgxpool.Pool) *InventoryStore {
	return &InventoryStore{pool: pool}
}

// Reserve atomically checks and decrements the counter for one size.
func (s *InventoryStore) Reserve(ctx context.Context, productID uuid.UUID, size string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET stock_by_sizes = jsonb_set(stock_by_sizes, ARRAY[$2],
			to_jsonb((stock_by_sizes->>$2)::int - $3))
		WHERE id = $1 AND COALESCE((stock_by_sizes->>$2)::int, 0) >= $3`,
		productID, size, quantity)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s size %s", ErrInsufficientStock, productID, size)
	}
	return nil
}

// Restore returns previously reserved units to the counter. It never fails on
// a missing size key; a counter that was deleted since the reservation is
// recreated at the restored quantity.
func (s *InventoryStore) Restore(ctx context.Context, productID uuid.UUID, size string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE products
		SET stock_by_sizes = jsonb_set(stock_by_sizes, ARRAY[$2],
			to_jsonb(COALESCE((stock_by_sizes->>$2)::int, 0) + $3))
		WHERE id = $1`,
		productID, size, quantity)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	return nil
}

// restoreOrderLines puts every reserved unit of an order back on the shelf
// inside the caller's transaction. OrderStore.CancelAndRestock runs it next
// to the status flip so neither half can land without the other.
func restoreOrderLines(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	rows, err := tx.Query(ctx,
		`SELECT product_id, size, quantity FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return err
	}

	type line struct {
		productID uuid.UUID
		size      string
		quantity  int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.size, &l.quantity); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			UPDATE products
			SET stock_by_sizes = jsonb_set(stock_by_sizes, ARRAY[$2],
				to_jsonb(COALESCE((stock_by_sizes->>$2)::int, 0) + $3))
			WHERE id = $1`,
			l.productID, l.size, l.quantity); err != nil {
			return fmt.Errorf("failed to restore order stock: %w", err)
		}
	}

	return nil
}
