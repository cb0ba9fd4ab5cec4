// Package alerts tracks user price alerts and evaluates them against the
// current offer snapshot.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medcena/offer-service/internal/cities"
	"github.com/medcena/offer-service/internal/notify"
	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/search"
)

// ErrNotFound is returned when an alert ID does not exist.
var ErrNotFound = errors.New("alert not found")

// Alert is a standing request to be notified when a product drops to or
// below a target price.
type Alert struct {
	ID          int64      `json:"id"`
	ProductName string     `json:"product_name"`
	TargetPrice float64    `json:"target_price"`
	City        string     `json:"city,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
}

// Store persists alerts in Postgres.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates an alert store over the given pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create inserts a new alert and returns it with its assigned ID.
func (s *Store) Create(ctx context.Context, a Alert) (Alert, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO price_alerts (product_name, target_price, city, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, a.ProductName, a.TargetPrice, a.City).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Alert{}, fmt.Errorf("failed to insert alert: %w", err)
	}
	return a, nil
}

// List returns all alerts, newest first.
func (s *Store) List(ctx context.Context) ([]Alert, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, product_name, target_price, city, created_at, last_fired_at
		FROM price_alerts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var city *string
		if err := rows.Scan(&a.ID, &a.ProductName, &a.TargetPrice, &city, &a.CreatedAt, &a.LastFiredAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if city != nil {
			a.City = *city
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Delete removes an alert by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM price_alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// markFired records the delivery time so an alert does not refire on every
// snapshot refresh while the price stays low.
func (s *Store) markFired(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE price_alerts SET last_fired_at = $2 WHERE id = $1`, id, at)
	return err
}

// Match is one alert satisfied by a concrete offer.
type Match struct {
	Alert Alert
	Offer pricing.Offer
	Price float64
}

// Evaluator checks alerts against snapshots and pushes notifications.
type Evaluator struct {
	store    *Store
	notifier *notify.Notifier

	// PriceWindow widens the trigger: an offer within this many currency
	// units above the target still fires, so users hear about near misses.
	priceWindow float64

	// refireAfter suppresses repeat notifications for the same alert.
	refireAfter time.Duration

	logger zerolog.Logger
}

// NewEvaluator wires an evaluator.
func NewEvaluator(store *Store, notifier *notify.Notifier, priceWindow float64, refireAfter time.Duration) *Evaluator {
	return &Evaluator{
		store:       store,
		notifier:    notifier,
		priceWindow: priceWindow,
		refireAfter: refireAfter,
		logger:      log.With().Str("component", "alert_evaluator").Logger(),
	}
}

// Evaluate matches all stored alerts against the corpus and notifies the
// webhook for each hit. Per-alert failures are logged and skipped so one bad
// alert cannot stall the sweep.
func (e *Evaluator) Evaluate(ctx context.Context, corpus []search.ProductOffers) error {
	alerts, err := e.store.List(ctx)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}

	now := time.Now().UTC()
	fired := 0
	for _, alert := range alerts {
		if alert.LastFiredAt != nil && now.Sub(*alert.LastFiredAt) < e.refireAfter {
			continue
		}
		match, ok := e.bestMatch(alert, corpus)
		if !ok {
			continue
		}

		msg := notify.Message{
			AlertID:     alert.ID,
			ProductName: alert.ProductName,
			Pharmacy:    match.Offer.Pharmacy,
			Price:       match.Price,
			TargetPrice: alert.TargetPrice,
			MapURL:      match.Offer.MapURL,
			Text: fmt.Sprintf("%s dostępny za %.2f zł w %s (cel: %.2f zł)",
				alert.ProductName, match.Price, match.Offer.Pharmacy, alert.TargetPrice),
		}
		if err := e.notifier.Send(ctx, msg); err != nil {
			e.logger.Warn().Err(err).Int64("alert_id", alert.ID).Msg("Alert notification not delivered")
			continue
		}
		if err := e.store.markFired(ctx, alert.ID, now); err != nil {
			e.logger.Warn().Err(err).Int64("alert_id", alert.ID).Msg("Failed to record alert delivery")
		}
		fired++
	}

	if fired > 0 {
		e.logger.Info().Int("fired", fired).Int("alerts", len(alerts)).Msg("Alert sweep completed")
	}
	return nil
}

// bestMatch finds the cheapest offer satisfying the alert.
func (e *Evaluator) bestMatch(alert Alert, corpus []search.ProductOffers) (Match, bool) {
	threshold := alert.TargetPrice + e.priceWindow

	var best Match
	found := false
	for _, po := range corpus {
		if cities.Fold(po.Product.Name) != cities.Fold(alert.ProductName) {
			continue
		}
		for _, o := range po.Offers {
			price := pricing.EffectivePrice(o)
			if price > threshold {
				continue
			}
			if alert.City != "" && !cities.AddressMatches(o.Address, alert.City) {
				continue
			}
			if !found || price < best.Price {
				best = Match{Alert: alert, Offer: o, Price: price}
				found = true
			}
		}
	}
	return best, found
}

// EnsureSchema creates the alerts table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_alerts (
			id BIGSERIAL PRIMARY KEY,
			product_name TEXT NOT NULL,
			target_price NUMERIC NOT NULL,
			city TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_fired_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure alerts schema: %w", err)
	}
	return nil
}
