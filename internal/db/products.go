package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cromashop/croma/internal/models"
)

// ProductStore reads catalog rows. Checkout uses it for authoritative
// pricing; stock mutation goes through InventoryStore only.
type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, price_cents, images, stock_by_sizes, active, created_at
		FROM products
		WHERE id = $1`, productID)

	var (
		product   models.Product
		stockJSON []byte
	)
	if err := row.Scan(&product.ID, &product.Name, &product.Slug, &product.PriceCents,
		&product.Images, &stockJSON, &product.Active, &product.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	if len(stockJSON) > 0 {
		if err := json.Unmarshal(stockJSON, &product.StockBySizes); err != nil {
			return nil, fmt.Errorf("failed to decode stock counters: %w", err)
		}
	}
	return &product, nil
}

// GetByIDs loads several products keyed by id. Missing ids are simply absent
// from the result; callers decide whether that is an error.
func (s *ProductStore) GetByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]*models.Product{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, slug, price_cents, images, stock_by_sizes, active, created_at
		FROM products
		WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[uuid.UUID]*models.Product, len(productIDs))
	for rows.Next() {
		var (
			product   models.Product
			stockJSON []byte
		)
		if err := rows.Scan(&product.ID, &product.Name, &product.Slug, &product.PriceCents,
			&product.Images, &stockJSON, &product.Active, &product.CreatedAt); err != nil {
			return nil, err
		}
		if len(stockJSON) > 0 {
			if err := json.Unmarshal(stockJSON, &product.StockBySizes); err != nil {
				return nil, fmt.Errorf("failed to decode stock counters: %w", err)
			}
		}
		p := product
		products[product.ID] = &p
	}
	return products, rows.Err()
}

// Upsert inserts or updates a catalog row by slug. Used by the catalog sync
// tool; stock counters are only written for brand-new products so a re-sync
// never clobbers live inventory.
func (s *ProductStore) Upsert(ctx context.Context, product *models.Product) error {
	stockJSON, err := json.Marshal(product.StockBySizes)
	if err != nil {
		return fmt.Errorf("failed to encode stock counters: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, slug, price_cents, images, stock_by_sizes, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name,
		    price_cents = EXCLUDED.price_cents,
		    images = EXCLUDED.images,
		    active = EXCLUDED.active
		RETURNING id`,
		product.Name, product.Slug, product.PriceCents, product.Images, stockJSON, product.Active)
	return row.Scan(&product.ID)
}
