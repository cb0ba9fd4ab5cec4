package importer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/medcena/offer-service/internal/pkg/cuid2"
	"github.com/medcena/offer-service/internal/pricing"
)

// Sink writes parsed offer rows into the price store.
type Sink struct {
	db *pgxpool.Pool
}

// NewSink creates a sink over the given pool.
func NewSink(db *pgxpool.Pool) *Sink {
	return &Sink{db: db}
}

// Write upserts products by name and appends their price rows inside one
// transaction. It returns the number of price rows written.
func (s *Sink) Write(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productIDs := make(map[string]string)
	for _, row := range rows {
		if _, ok := productIDs[row.ProductName]; ok {
			continue
		}
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO products (id, name, label)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, cuid2.GeneratePrefixedId("prd", cuid2.PrefixedIdOptions{TimeSortable: true}),
			row.ProductName, pricing.DeriveLabel(row.ProductName)).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert product %q: %w", row.ProductName, err)
		}
		productIDs[row.ProductName] = id
	}

	written := 0
	for _, row := range rows {
		o := row.Offer
		_, err := tx.Exec(ctx, `
			INSERT INTO pharmacy_prices
				(product_id, pharmacy, address, price, price_per_g, unit,
				 pharmacy_lat, pharmacy_lon, rating, expiration, fetched_at, map_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, productIDs[row.ProductName], o.Pharmacy, o.Address, o.Price, o.PricePerGram, o.Unit,
			o.PharmacyLat, o.PharmacyLon, o.Rating, nullable(o.Expiration), o.FetchedAt, nullable(o.MapURL))
		if err != nil {
			return 0, fmt.Errorf("failed to insert price row: %w", err)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().Int("products", len(productIDs)).Int("prices", written).Msg("Import written")
	return written, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EnsureSchema creates the offer tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			label TEXT,
			strain_type TEXT,
			unit TEXT,
			thc_content NUMERIC,
			cbd_content NUMERIC
		);
		CREATE TABLE IF NOT EXISTS pharmacy_prices (
			id BIGSERIAL PRIMARY KEY,
			product_id TEXT NOT NULL REFERENCES products(id),
			pharmacy TEXT NOT NULL,
			address TEXT,
			price NUMERIC,
			price_per_g NUMERIC,
			unit TEXT,
			pharmacy_lat NUMERIC,
			pharmacy_lon NUMERIC,
			rating NUMERIC,
			expiration TEXT,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			map_url TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_pharmacy_prices_product_fetched
			ON pharmacy_prices (product_id, fetched_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure offer schema: %w", err)
	}
	return nil
}
