package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/search"
)

// PGLoader loads the corpus from Postgres. Both queries run inside a single
// read-only transaction so the product list and the price rows describe the
// same scrape state.
type PGLoader struct {
	db         *pgxpool.Pool
	normalizer *pricing.Normalizer
}

// NewPGLoader creates a loader over the given pool.
func NewPGLoader(db *pgxpool.Pool, normalizer *pricing.Normalizer) *PGLoader {
	return &PGLoader{db: db, normalizer: normalizer}
}

// LoadCorpus reads all products and their price rows, normalizes and
// deduplicates the current offers, and collects the raw history for trends.
// Rows that fail validation are counted and skipped, never fatal.
func (l *PGLoader) LoadCorpus(ctx context.Context) (LoadResult, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	products, err := l.loadProducts(ctx, tx)
	if err != nil {
		return LoadResult{}, err
	}

	byProduct, trends, skipped, err := l.loadOffers(ctx, tx, products)
	if err != nil {
		return LoadResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return LoadResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	corpus := make([]search.ProductOffers, 0, len(products))
	for _, p := range products {
		corpus = append(corpus, search.ProductOffers{
			Product: p,
			Offers:  pricing.Deduplicate(byProduct[p.ID]),
		})
	}
	return LoadResult{Corpus: corpus, Trends: trends, Skipped: skipped}, nil
}

func (l *PGLoader) loadProducts(ctx context.Context, tx pgx.Tx) ([]pricing.Product, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, name, label, strain_type, unit, thc_content, cbd_content
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []pricing.Product
	for rows.Next() {
		var p pricing.Product
		var label, strain, unit *string
		if err := rows.Scan(&p.ID, &p.Name, &label, &strain, &unit, &p.THCContent, &p.CBDContent); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if label != nil {
			p.Label = *label
		}
		if p.Label == "" {
			p.Label = pricing.DeriveLabel(p.Name)
		}
		if strain != nil {
			p.StrainType = pricing.ParseStrainType(*strain)
		} else {
			p.StrainType = pricing.StrainUnknown
		}
		if unit != nil {
			p.Unit = *unit
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (l *PGLoader) loadOffers(ctx context.Context, tx pgx.Tx, products []pricing.Product) (map[string][]pricing.Offer, map[string][]pricing.TrendPoint, int, error) {
	rows, err := tx.Query(ctx, `
		SELECT product_id, pharmacy, address, price, price_per_g, unit,
		       pharmacy_lat, pharmacy_lon, rating, expiration, fetched_at, map_url
		FROM pharmacy_prices
		ORDER BY product_id, fetched_at
	`)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to query pharmacy prices: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool, len(products))
	for _, p := range products {
		known[p.ID] = true
	}

	byProduct := make(map[string][]pricing.Offer)
	trends := make(map[string][]pricing.TrendPoint)
	skipped := 0
	now := time.Now().UTC()

	for rows.Next() {
		var productID string
		var raw pricing.RawOffer
		var address, unit, expiration, mapURL *string
		var fetchedAt *time.Time
		if err := rows.Scan(&productID, &raw.Pharmacy, &address, &raw.Price, &raw.PricePerGram, &unit,
			&raw.PharmacyLat, &raw.PharmacyLon, &raw.Rating, &expiration, &fetchedAt, &mapURL); err != nil {
			return nil, nil, 0, fmt.Errorf("failed to scan pharmacy price: %w", err)
		}
		if !known[productID] {
			skipped++
			continue
		}
		if address != nil {
			raw.Address = *address
		}
		if unit != nil {
			raw.Unit = *unit
		}
		if expiration != nil {
			raw.Expiration = *expiration
		}
		if mapURL != nil {
			raw.MapURL = *mapURL
		}
		if fetchedAt != nil {
			raw.FetchedAt = *fetchedAt
		}

		offer, err := l.normalizer.Normalize(productID, raw)
		if err != nil {
			skipped++
			log.Debug().Err(err).Str("product_id", productID).Msg("Skipping invalid price row")
			continue
		}

		trends[productID] = append(trends[productID], pricing.TrendPoint{
			FetchedAt: offer.FetchedAt,
			Price:     pricing.EffectivePrice(offer),
		})
		if !pricing.IsExpired(offer, now) {
			byProduct[productID] = append(byProduct[productID], offer)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, 0, fmt.Errorf("error iterating pharmacy prices: %w", err)
	}
	return byProduct, trends, skipped, nil
}
