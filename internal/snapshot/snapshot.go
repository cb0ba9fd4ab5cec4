// Package snapshot serves the offer corpus to request handlers. The corpus is
// loaded as one immutable snapshot and swapped atomically, so reads never
// block on a reload and a failed reload keeps the previous snapshot serving.
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medcena/offer-service/internal/cities"
	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/search"
)

// Snapshot is an immutable view of the full offer corpus. Once published it is
// never mutated; a reload builds a fresh one off to the side.
type Snapshot struct {
	Corpus   []search.ProductOffers
	Trends   map[string][]pricing.TrendPoint // product ID -> raw price history
	LoadedAt time.Time

	// OfferCount and SkippedRows describe the load that produced this
	// snapshot: how many offers survived normalization and how many source
	// rows were rejected.
	OfferCount  int
	SkippedRows int

	byName map[string]int // folded product name -> Corpus index
}

// LoadResult is what a Loader hands back: the deduplicated current corpus,
// the undeduplicated price history per product for trend aggregation, and
// the number of source rows rejected during normalization.
type LoadResult struct {
	Corpus  []search.ProductOffers
	Trends  map[string][]pricing.TrendPoint
	Skipped int
}

// NewSnapshot indexes the corpus by folded product name.
func NewSnapshot(res LoadResult, loadedAt time.Time) *Snapshot {
	corpus := res.Corpus
	s := &Snapshot{
		Corpus:      corpus,
		Trends:      res.Trends,
		LoadedAt:    loadedAt,
		SkippedRows: res.Skipped,
		byName:      make(map[string]int, len(corpus)),
	}
	for i, po := range corpus {
		s.OfferCount += len(po.Offers)
		key := cities.Fold(po.Product.Name)
		if _, dup := s.byName[key]; !dup {
			s.byName[key] = i
		}
	}
	return s
}

// Product looks up a product by name, diacritic- and case-insensitively.
func (s *Snapshot) Product(name string) (search.ProductOffers, bool) {
	i, ok := s.byName[cities.Fold(name)]
	if !ok {
		return search.ProductOffers{}, false
	}
	return s.Corpus[i], true
}

// Trend returns the raw price history for a product ID.
func (s *Snapshot) Trend(productID string) []pricing.TrendPoint {
	return s.Trends[productID]
}

// Loader produces a fresh corpus. Implementations must return data the store
// can own outright; the store never copies defensively.
type Loader interface {
	LoadCorpus(ctx context.Context) (LoadResult, error)
}

// singleFlightGroup collapses concurrent reload requests into one load.
// A custom type instead of golang.org/x/sync/singleflight so the load runs on
// a dedicated context and one cancelled request cannot fail the others.
type singleFlightGroup struct {
	mu   sync.Mutex
	call *singleFlightCall
}

type singleFlightCall struct {
	wg  sync.WaitGroup
	val *Snapshot
	err error
}

func (g *singleFlightGroup) do(fn func() (*Snapshot, error)) (*Snapshot, error, bool) {
	g.mu.Lock()
	if g.call != nil {
		call := g.call
		g.mu.Unlock()
		call.wg.Wait()
		return call.val, call.err, true
	}
	call := &singleFlightCall{}
	call.wg.Add(1)
	g.call = call
	g.mu.Unlock()

	call.val, call.err = fn()
	call.wg.Done()

	g.mu.Lock()
	g.call = nil
	g.mu.Unlock()

	return call.val, call.err, false
}

// warmupGate blocks requests until the first snapshot is published.
type warmupGate struct {
	mu       sync.RWMutex
	ready    bool
	warmedCh chan struct{}
}

func newWarmupGate() *warmupGate {
	return &warmupGate{warmedCh: make(chan struct{})}
}

func (g *warmupGate) markReady() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.ready {
		g.ready = true
		close(g.warmedCh)
	}
}

func (g *warmupGate) isReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}

func (g *warmupGate) wait(ctx context.Context) bool {
	if g.isReady() {
		return true
	}
	select {
	case <-g.warmedCh:
		return true
	case <-ctx.Done():
		return false
	}
}

// Store owns the current snapshot and its refresh lifecycle.
type Store struct {
	current atomic.Value // *Snapshot
	sf      singleFlightGroup

	loader      Loader
	loadTimeout time.Duration
	metrics     *MetricsRecorder
	logger      zerolog.Logger
	gate        *warmupGate

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStore wires a store around the given loader. loadTimeout bounds each
// corpus load; zero means no bound.
func NewStore(loader Loader, loadTimeout time.Duration) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		loader:      loader,
		loadTimeout: loadTimeout,
		metrics:     NewMetricsRecorder(),
		logger:      log.With().Str("component", "snapshot_store").Logger(),
		gate:        newWarmupGate(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Current returns the latest snapshot, or nil before warmup.
func (s *Store) Current() *Snapshot {
	val := s.current.Load()
	if val == nil {
		return nil
	}
	return val.(*Snapshot)
}

// Ready reports whether the first snapshot has been published.
func (s *Store) Ready() bool {
	return s.gate.isReady()
}

// WaitReady blocks until the first snapshot is available or ctx is cancelled.
func (s *Store) WaitReady(ctx context.Context) bool {
	return s.gate.wait(ctx)
}

// Warmup performs the initial load and opens the gate. The server calls this
// once at startup before accepting traffic.
func (s *Store) Warmup(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("snapshot warmup: %w", err)
	}
	s.gate.markReady()
	s.logger.Info().Msg("Snapshot warmup completed")
	return nil
}

// Refresh loads a fresh snapshot and swaps it in. Concurrent callers share a
// single load via singleflight. The load runs on its own context so the
// caller's cancellation does not abort a load other callers are waiting on.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err, shared := s.sf.do(func() (*Snapshot, error) {
		loadCtx := s.ctx
		if s.loadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(s.ctx, s.loadTimeout)
			defer cancel()
		}

		start := time.Now()
		res, loadErr := s.loader.LoadCorpus(loadCtx)
		s.metrics.RecordLoad(time.Since(start).Seconds(), loadErr == nil)
		if loadErr != nil {
			s.logger.Error().Err(loadErr).Msg("Snapshot load failed")
			return nil, loadErr
		}

		fresh := NewSnapshot(res, time.Now())
		s.current.Store(fresh)
		s.metrics.RecordSnapshot(len(fresh.Corpus), fresh.OfferCount, fresh.SkippedRows)

		s.logger.Info().
			Int("products", len(fresh.Corpus)).
			Int("offers", fresh.OfferCount).
			Int("skipped_rows", fresh.SkippedRows).
			Dur("duration", time.Since(start)).
			Msg("Loaded offer snapshot")
		return fresh, nil
	})
	if shared {
		s.logger.Debug().Msg("Snapshot refresh joined an in-flight load")
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// StartAutoRefresh reloads the snapshot on the given interval until Close.
func (s *Store) StartAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Refresh(s.ctx); err != nil {
					s.logger.Warn().Err(err).Msg("Scheduled snapshot refresh failed")
				}
				if snap := s.Current(); snap != nil {
					s.metrics.RecordAge(time.Since(snap.LoadedAt).Seconds())
				}
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// Close stops background refreshes and waits for them to finish.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}
