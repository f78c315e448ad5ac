package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kervanis/order-engine/internal/domain/catalog"
	"github.com/kervanis/order-engine/internal/domain/pricing"
	"github.com/kervanis/order-engine/internal/storage/postgres"
)

type productJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Barcode      string          `json:"barcode"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	OnHand       int             `json:"on_hand"`
	Unit         string          `json:"unit"`
	Category     string          `json:"category"`
	Tobacco      bool            `json:"tobacco"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		demoPrices   bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.BoolVar(&demoPrices, "demo-prices", true, "seed demo negotiated customer prices")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, demoPrices); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string, demoPrices bool) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewCatalogRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if demoPrices {
		if err := seedCustomerPrices(ctx, postgres.NewPriceRepository(pool)); err != nil {
			return errors.Wrap(err, "seed customer prices")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.CatalogRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, catalog.Product{
			ID:           p.ID,
			Name:         p.Name,
			SKU:          p.SKU,
			Barcode:      p.Barcode,
			RegularPrice: p.RegularPrice,
			OnHand:       p.OnHand,
			Unit:         p.Unit,
			Category:     p.Category,
			Tobacco:      p.Tobacco,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

// seedCustomerPrices creates a handful of negotiated prices so a fresh
// install demonstrates the customer price tier out of the box.
func seedCustomerPrices(ctx context.Context, repo *postgres.PriceRepository) error {
	slog.Info("seeding demo customer prices")

	d := decimal.RequireFromString
	in90Days := time.Now().AddDate(0, 0, 90)

	records := []pricing.Record{
		{
			CustomerID:    "cust-smoke-palace",
			ProductID:     "P-1001",
			LastPrice:     d("250.00"),
			OriginalPrice: d("285.00"),
			ValidUntil:    &in90Days,
			TotalQuantity: d("10"),
		},
		{
			CustomerID:    "cust-smoke-palace",
			ProductID:     "P-1003",
			LastPrice:     d("18.00"),
			OriginalPrice: d("24.00"),
			Locked:        true,
			TotalQuantity: d("40"),
		},
		{
			CustomerID:    "cust-corner-lounge",
			ProductID:     "P-2001",
			LastPrice:     d("62.00"),
			OriginalPrice: d("68.50"),
			ValidUntil:    &in90Days,
			TotalQuantity: d("5"),
		},
	}

	for _, rec := range records {
		if err := repo.RecordNegotiated(ctx, rec); err != nil {
			return errors.Wrapf(err, "record price %s/%s", rec.CustomerID, rec.ProductID)
		}
		slog.Info("seeded customer price",
			slog.String("customer", rec.CustomerID),
			slog.String("product", rec.ProductID),
			slog.String("price", rec.LastPrice.String()),
		)
	}

	return nil
}
