// Command catalog-seed loads gzipped catalog dumps into PostgreSQL and
// seeds the discount rules. Dump files come from the merchandising export
// and overlap heavily, so product ids are deduplicated across files.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/craftpc/storefront/internal/domain/coupon"
	"github.com/craftpc/storefront/internal/domain/product"
	"github.com/craftpc/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.0001
)

type productJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	BuildType    string          `json:"build_type"`
	BuildFamily  string          `json:"build_family"`
	ListPrice    decimal.Decimal `json:"list_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        int             `json:"stock"`
	Image        string          `json:"image"`
	Visible      bool            `json:"visible"`
}

func main() {
	var (
		databaseURL string
		catalogDir  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogDir, "catalog-dir", "db/seed", "directory containing catalog*.json.gz dump files")
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

	if err := run(ctx, databaseURL, catalogDir); err != nil {
		slog.Error("catalog seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogDir string) error {
	files, err := filepath.Glob(filepath.Join(catalogDir, "catalog*.json.gz"))
	if err != nil {
		return errors.Wrap(err, "list catalog dumps")
	}
	if len(files) == 0 {
		return errors.Errorf("no catalog*.json.gz files in %s", catalogDir)
	}

	slog.Info("decoding catalog dumps", slog.Int("files", len(files)))

	batches, err := decodeDumps(ctx, files)
	if err != nil {
		return errors.Wrap(err, "decode catalog dumps")
	}

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

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), batches); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedRules(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed discount rules")
	}

	return nil
}

// decodeDumps reads and parses every dump file concurrently. Results keep
// the input file order so deduplication is deterministic.
func decodeDumps(ctx context.Context, files []string) ([][]productJSON, error) {
	batches := make([][]productJSON, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch, err := decodeDump(path)
			if err != nil {
				return errors.Wrapf(err, "decode %s", path)
			}
			slog.Info("decoded dump", slog.String("file", path), slog.Int("products", len(batch)))
			batches[i] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

func decodeDump(path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}

	var batch []productJSON
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, errors.Wrap(err, "parse JSON")
	}
	return batch, nil
}

// seedProducts upserts every product, first file wins. Dump files repeat
// ids heavily, so a bloom filter skips redundant upserts; duplicate rows
// across dumps are identical, so a false positive costs nothing.
func seedProducts(ctx context.Context, repo *postgres.ProductRepository, batches [][]productJSON) error {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	var total, skipped int
	for _, batch := range batches {
		for _, p := range batch {
			if seen.TestAndAddString(p.ID) {
				skipped++
				continue
			}
			if err := repo.Upsert(ctx, product.Product{
				ID:           p.ID,
				Name:         p.Name,
				Description:  p.Description,
				Category:     p.Category,
				BuildType:    product.BuildType(p.BuildType),
				BuildFamily:  p.BuildFamily,
				ListPrice:    p.ListPrice,
				SellingPrice: p.SellingPrice,
				Stock:        p.Stock,
				Image:        p.Image,
				Visible:      p.Visible,
			}); err != nil {
				return err
			}
			total++
		}
	}

	slog.Info("upserted products", slog.Int("count", total), slog.Int("duplicates_skipped", skipped))
	return nil
}

// seedRules writes the standing promotion set.
func seedRules(ctx context.Context, repo *postgres.CouponRepository) error {
	launch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rules := []coupon.Rule{
		{
			Code:        "CUSTOM10",
			Scope:       coupon.Scope{Kind: coupon.ScopeAllCustom},
			Percent:     decimal.NewFromInt(10),
			ValidFrom:   launch,
			Description: "10% off all custom builds",
		},
		{
			Code:        "INTEL15",
			Scope:       coupon.Scope{Kind: coupon.ScopePrebuildFamily, Family: "Intel"},
			Percent:     decimal.NewFromInt(15),
			ValidFrom:   launch,
			Description: "15% off Intel pre-built machines",
		},
		{
			Code:        "AMD12",
			Scope:       coupon.Scope{Kind: coupon.ScopePrebuildFamily, Family: "AMD"},
			Percent:     decimal.NewFromInt(12),
			ValidFrom:   launch,
			Description: "12% off AMD pre-built machines",
		},
	}

	for _, rule := range rules {
		if err := repo.UpsertRule(ctx, rule); err != nil {
			return err
		}
		slog.Info("upserted rule", slog.String("code", rule.Code), slog.String("description", rule.Description))
	}

	return nil
}
