// Command seed-db loads the product catalog and discount rules from JSON
// seed files into the database.
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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsdepot/pricing-engine/internal/domain/catalog"
	"github.com/partsdepot/pricing-engine/internal/domain/discount"
	"github.com/partsdepot/pricing-engine/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
}

type ruleJSON struct {
	Code              string          `json:"code"`
	Kind              string          `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	StartsAt          time.Time       `json:"startsAt"`
	EndsAt            time.Time       `json:"endsAt"`
	Status            string          `json:"status"`
	TargetType        string          `json:"targetType"`
	ProductIDs        []string        `json:"productIds"`
	Categories        []string        `json:"categories"`
	CustomerIDs       []string        `json:"customerIds"`
	MinOrderAmount    decimal.Decimal `json:"minOrderAmount"`
	FirstPurchaseOnly bool            `json:"firstPurchaseOnly"`
	Automatic         bool            `json:"automatic"`
	Description       string          `json:"description"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		rulesFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&rulesFile, "rules-file", "db/seed/rules.json", "path to discount rules JSON file")
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

	if err := run(ctx, databaseURL, productsFile, rulesFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, rulesFile string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedRules(ctx, repository.NewDiscountRepository(pool), rulesFile); err != nil {
		return errors.Wrap(err, "seed rules")
	}
	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}

	for _, p := range products {
		err := repo.Upsert(ctx, &catalog.Product{
			ID:       p.ID,
			Name:     p.Name,
			Brand:    p.Brand,
			Price:    p.Price,
			Category: p.Category,
			Image:    p.Image,
		})
		if err != nil {
			return err
		}
	}

	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedRules(ctx context.Context, repo *repository.DiscountRepository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	var rules []ruleJSON
	if err := json.Unmarshal(data, &rules); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}

	for _, r := range rules {
		status := discount.Status(r.Status)
		if status == "" {
			status = discount.StatusActive
		}
		target := discount.TargetType(r.TargetType)
		if target == "" {
			target = discount.TargetAll
		}
		err := repo.Create(ctx, &discount.Rule{
			ID:                uuid.New().String(),
			Code:              r.Code,
			Kind:              discount.Kind(r.Kind),
			Amount:            r.Amount,
			StartsAt:          r.StartsAt,
			EndsAt:            r.EndsAt,
			StoredStatus:      status,
			Target:            target,
			ProductIDs:        r.ProductIDs,
			Categories:        r.Categories,
			CustomerIDs:       r.CustomerIDs,
			MinOrderAmount:    r.MinOrderAmount,
			FirstPurchaseOnly: r.FirstPurchaseOnly,
			Automatic:         r.Automatic,
			Description:       r.Description,
		})
		if err != nil {
			return err
		}
	}

	slog.Info("rules seeded", slog.Int("count", len(rules)))
	return nil
}
