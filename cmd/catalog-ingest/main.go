// Command catalog-ingest loads supplier product feeds into the catalog.
//
// Feeds are gzip-compressed JSONL files, one product per line, named by
// supplier priority (feed1.jsonl.gz, feed2.jsonl.gz, ...). Feeds are streamed
// in priority order; a bloom filter tracks product IDs already ingested so a
// lower-priority feed never overwrites a higher-priority one. Database writes
// run on a small worker pool.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kervanis/order-engine/internal/domain/catalog"
	"github.com/kervanis/order-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 5_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

// feedRow is one product line in a supplier feed.
type feedRow struct {
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
		dataDir     string
		databaseURL string
		workers     int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing feed*.jsonl.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 4, "concurrent database writers")
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

	if err := run(ctx, dataDir, databaseURL, workers); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, workers int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "feed*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no feed*.jsonl.gz files in %s", dataDir)
	}
	sort.Strings(files)

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewCatalogRepository(pool)
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	for i, f := range files {
		slog.Info("ingesting feed", slog.Int("priority", i+1), slog.String("file", f))
		if err := ingestFeed(ctx, repo, seen, f, workers); err != nil {
			return errors.Wrapf(err, "ingest %s", f)
		}
	}

	return nil
}

// ingestFeed streams one feed file and upserts its new products. The bloom
// filter is shared across feeds: an ID that tests positive is skipped, so the
// first feed to carry a product wins. The filter's false positive rate means
// a tiny fraction of genuinely new products may be skipped as well, which is
// acceptable for periodic feeds that repeat their full catalog.
func ingestFeed(ctx context.Context, repo *postgres.CatalogRepository, seen *bloom.BloomFilter, path string, workers int) error {
	rows := make(chan feedRow, workers*4)

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for row := range rows {
				if err := repo.Upsert(ctx, catalog.Product{
					ID:           row.ID,
					Name:         row.Name,
					SKU:          row.SKU,
					Barcode:      row.Barcode,
					RegularPrice: row.RegularPrice,
					OnHand:       row.OnHand,
					Unit:         row.Unit,
					Category:     row.Category,
					Tobacco:      row.Tobacco,
				}); err != nil {
					return errors.Wrapf(err, "upsert product %s", row.ID)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(rows)

		var total, kept, malformed uint64
		err := streamGzLines(ctx, path, func(line []byte) error {
			total++
			if total%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("rows", total),
					slog.Uint64("kept", kept),
				)
			}

			var row feedRow
			if err := json.Unmarshal(line, &row); err != nil {
				malformed++
				return nil
			}
			if row.ID == "" || row.Name == "" {
				malformed++
				return nil
			}
			if seen.TestOrAddString(row.ID) {
				return nil
			}

			kept++
			select {
			case rows <- row:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return err
		}

		slog.Info("feed scanned",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("rows", total),
			slog.Uint64("kept", kept),
			slog.Uint64("malformed", malformed),
		)
		return nil
	})

	return g.Wait()
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
