// Package sweep enforces TTL-based eviction: a periodic task that asks
// the registry for expired items and issues best-effort blob deletes.
package sweep

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"dropzone/internal/blobstore"
	"dropzone/internal/session"
)

var (
	sweptItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropzone_swept_items_total",
		Help: "Items evicted from the registry by the sweeper.",
	})
	sweepDeleteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropzone_sweep_delete_failures_total",
		Help: "Backend blob deletes that failed during a sweep.",
	})
)

// Sweeper periodically evicts expired items and deletes their blobs.
type Sweeper struct {
	registry *session.Registry
	blobs    blobstore.Store
	ttl      time.Duration
	interval time.Duration
}

// New wires a sweeper. interval defaults to a minute when zero.
func New(registry *session.Registry, blobs blobstore.Store, ttl, interval time.Duration) *Sweeper {
	if interval == 0 {
		interval = time.Minute
	}
	return &Sweeper{
		registry: registry,
		blobs:    blobs,
		ttl:      ttl,
		interval: interval,
	}
}

// Run loops until ctx is cancelled, sweeping once immediately and then
// on every tick. Each tick is fault-isolated: a failing backend or a
// panic in one run never stops the loop.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().
		Dur("interval", s.interval).
		Dur("ttl", s.ttl).
		Msg("sweeper starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper shutting down")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Msg("sweep tick panicked")
		}
	}()

	start := time.Now()
	removed := s.SweepOnce(ctx, time.Now().UTC())
	if len(removed) > 0 {
		log.Info().
			Int("removed", len(removed)).
			Dur("duration", time.Since(start)).
			Msg("sweep complete")
	}
}

// SweepOnce evicts everything past its TTL as of now and deletes the
// backing blobs. The registry lock is released before any backend
// call; the eviction itself is the snapshot. Delete failures are
// logged and dropped: the item stays logically deleted either way, so
// a flaky backend cannot resurrect entries or grow the registry.
// Returns the removed items so callers and tests can observe the
// sweep's effect directly.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) []session.Item {
	removed := s.registry.EvictExpired(now, s.ttl)
	for _, it := range removed {
		if err := s.blobs.Delete(ctx, it.Locator); err != nil {
			sweepDeleteFailuresTotal.Inc()
			log.Warn().Err(err).
				Str("locator", it.Locator).
				Str("item", it.ID).
				Msg("blob delete failed")
		}
	}
	sweptItemsTotal.Add(float64(len(removed)))
	return removed
}
