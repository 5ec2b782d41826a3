package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entity. Checkout reads it for authoritative pricing;
// only the inventory ledger mutates its per-size stock counters.
type Product struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	PriceCents   int64          `json:"price_cents"`
	Images       []string       `json:"images"`
	StockBySizes map[string]int `json:"stock_by_sizes"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TotalStock is the sum of the per-size counters.
func (p *Product) TotalStock() int {
	total := 0
	for _, units := range p.StockBySizes {
		total += units
	}
	return total
}

// MainImage returns the first catalog image, or empty when none exist.
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
