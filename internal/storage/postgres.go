package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealer-inventory/internal/config"
	"dealer-inventory/pkg/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS inventory_snapshots (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL DEFAULT '',
	listing_count INTEGER NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory_listings (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	year INTEGER,
	make TEXT,
	model TEXT,
	trim TEXT,
	price INTEGER NOT NULL DEFAULT 0,
	price_display TEXT,
	mileage INTEGER NOT NULL DEFAULT 0,
	exterior_color TEXT,
	interior_color TEXT,
	vin TEXT,
	stock_number TEXT,
	image TEXT,
	detail_url TEXT,
	first_seen_at TIMESTAMPTZ NOT NULL,
	last_seen_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inventory_listings_model ON inventory_listings(model);
CREATE INDEX IF NOT EXISTS idx_inventory_listings_last_seen ON inventory_listings(last_seen_at);
`

const upsertListingSQL = `
INSERT INTO inventory_listings (
	id, title, year, make, model, trim, price, price_display, mileage,
	exterior_color, interior_color, vin, stock_number, image, detail_url,
	first_seen_at, last_seen_at
)
VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	year = EXCLUDED.year,
	make = EXCLUDED.make,
	model = EXCLUDED.model,
	trim = EXCLUDED.trim,
	price = EXCLUDED.price,
	price_display = EXCLUDED.price_display,
	mileage = EXCLUDED.mileage,
	exterior_color = EXCLUDED.exterior_color,
	interior_color = EXCLUDED.interior_color,
	vin = EXCLUDED.vin,
	stock_number = EXCLUDED.stock_number,
	image = EXCLUDED.image,
	detail_url = EXCLUDED.detail_url,
	last_seen_at = EXCLUDED.last_seen_at;
`

const insertSnapshotSQL = `
INSERT INTO inventory_snapshots (source, listing_count, fetched_at) VALUES ($1, $2, $3);
`

// PostgresArchive keeps a history of every listing ever seen, with first and
// last sighting times.
type PostgresArchive struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresArchive connects to the database named by cfg.Postgres.DSN.
func NewPostgresArchive(ctx context.Context, cfg *config.Config) (*PostgresArchive, error) {
	timeout := cfg.Postgres.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresArchive{pool: pool, timeout: timeout}, nil
}

// EnsureSchema creates the archive tables when missing.
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*a.timeout)
	defer cancel()

	if _, err := a.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// WriteSnapshot upserts every listing and records the snapshot itself.
func (a *PostgresArchive) WriteSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, 3*a.timeout)
	defer cancel()

	batch := &pgx.Batch{}
	batch.Queue(insertSnapshotSQL, snapshot.Source, len(snapshot.Listings), snapshot.FetchedAt)
	for _, l := range snapshot.Listings {
		batch.Queue(upsertListingSQL, listingArgs(l, snapshot.FetchedAt)...)
	}

	results := a.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("archive batch failed at row %d: %w", i, err)
		}
	}
	return nil
}

func listingArgs(l models.Listing, seenAt time.Time) []interface{} {
	return []interface{}{
		l.ID, l.Title, l.Year, l.Make, l.Model, l.Trim, l.Price, l.PriceDisplay, l.Mileage,
		l.ExteriorColor, l.InteriorColor, l.VIN, l.StockNumber, l.Image, l.DetailURL,
		seenAt,
	}
}

// Ping checks the database connection.
func (a *PostgresArchive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Close releases the connection pool.
func (a *PostgresArchive) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
