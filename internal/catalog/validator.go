package catalog

// Package catalog provides catalog validation.

import (
	"fmt"
	"regexp"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IsValidSlug validates a product slug (lowercase alphanumerics separated by
// single hyphens).
func IsValidSlug(slug string) bool {
	return slugRegex.MatchString(slug)
}

func (v *Validator) Validate(file *CatalogFile) error {
	if err := v.validateStore(&file.Store); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}

	if len(file.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	slugs := make(map[string]bool)
	for i, product := range file.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		if slugs[product.Slug] {
			return fmt.Errorf("duplicate slug: %s", product.Slug)
		}
		slugs[product.Slug] = true
	}

	return nil
}

func (v *Validator) validateStore(store *StoreConfig) error {
	if strings.TrimSpace(store.Name) == "" {
		return fmt.Errorf("store name is required")
	}

	if store.Currency != "eur" {
		return fmt.Errorf("only EUR currency is supported")
	}

	return nil
}

func (v *Validator) validateProduct(product *ProductConfig) error {
	if !IsValidSlug(product.Slug) {
		return fmt.Errorf("product slug %q is invalid", product.Slug)
	}

	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	if product.PriceCents <= 0 {
		return fmt.Errorf("product price must be positive")
	}

	if len(product.Stock) == 0 {
		return fmt.Errorf("product stock must list at least one size")
	}

	for size, qty := range product.Stock {
		if strings.TrimSpace(size) == "" {
			return fmt.Errorf("stock size key cannot be empty")
		}
		if qty < 0 {
			return fmt.Errorf("stock for size %s cannot be negative", size)
		}
	}

	return nil
}
