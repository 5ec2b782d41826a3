package main

// catalog-sync loads a YAML catalog file and upserts its products into the
// database. Run it after editing the catalog; existing stock counters are
// preserved for products that already exist.

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/cromashop/croma/internal/catalog"
	"github.com/cromashop/croma/internal/db"
	"github.com/cromashop/croma/internal/models"
)

func main() {
	var (
		catalogPath = flag.String("catalog", "catalog.yaml", "path to the catalog YAML file")
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	)
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))

	if err := run(logger, *catalogPath, *databaseURL); err != nil {
		logger.Error("catalog sync failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, catalogPath, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is required (set DATABASE_URL or pass -database-url)")
	}

	parser := catalog.NewParser()
	file, err := parser.ParseFile(catalogPath)
	if err != nil {
		return err
	}

	validator := catalog.NewValidator()
	if err := validator.Validate(file); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	products := db.NewProductStore(pool)
	for _, pc := range file.Products {
		product := &models.Product{
			Name:         pc.Name,
			Slug:         pc.Slug,
			PriceCents:   pc.PriceCents,
			Images:       pc.Images,
			StockBySizes: pc.Stock,
			Active:       pc.Active,
		}
		if err := products.Upsert(ctx, product); err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", pc.Slug, err)
		}
		logger.Info("product synced", "slug", pc.Slug, "price_cents", pc.PriceCents)
	}

	logger.Info("catalog synced", "store", file.Store.Name, "products", len(file.Products))
	return nil
}
