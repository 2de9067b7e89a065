package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	"SignalDeck/internal/service/cache"
	applogger "SignalDeck/pkg/logger"
)

// Syncer performs the authoritative snapshot fetches and folds results into
// the store. Both the poller and the reconciler go through it. A fetch
// failure leaves existing state untouched.
type Syncer struct {
	gw          drepo.GatewayAPI
	store       *Store
	snapshots   *cache.SnapshotCache
	log         *applogger.Logger
	metrics     drepo.Metrics
	signalLimit int
}

func NewSyncer(gw drepo.GatewayAPI, store *Store, snapshots *cache.SnapshotCache, log *applogger.Logger, metrics drepo.Metrics, signalLimit int) *Syncer {
	if signalLimit <= 0 {
		signalLimit = 20
	}
	return &Syncer{gw: gw, store: store, snapshots: snapshots, log: log, metrics: metrics, signalLimit: signalLimit}
}

// WarmStart loads the last cached snapshot of each resource so the view is
// stale-but-available before the first fetch completes.
func (s *Syncer) WarmStart(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	var sigs []models.Signal
	if s.snapshots.Get(ctx, cache.KeySignals, &sigs) {
		s.store.MergeSignals(sigs)
	}
	var pos []models.Position
	if s.snapshots.Get(ctx, cache.KeyPositions, &pos) {
		s.store.ReplacePositions(pos)
	}
	var st models.Stats
	if s.snapshots.Get(ctx, cache.KeyStats, &st) {
		s.store.ReplaceStats(st)
	}
	var acc models.AccountSnapshot
	if s.snapshots.Get(ctx, cache.KeyAccount, &acc) {
		s.store.ReplaceAccount(acc)
	}
}

// FetchSignals pulls the signal list and merges it by id.
func (s *Syncer) FetchSignals(ctx context.Context) error {
	return s.timed(ctx, "fetch_signals", func() error {
		sigs, err := s.gw.Signals(ctx, s.signalLimit)
		if err != nil {
			return fmt.Errorf("fetch signals: %w", err)
		}
		s.store.MergeSignals(sigs)
		s.cachePut(ctx, cache.KeySignals, sigs)
		return nil
	})
}

// FetchPositions replaces the position list wholesale; single-writer
// resource.
func (s *Syncer) FetchPositions(ctx context.Context) error {
	return s.timed(ctx, "fetch_positions", func() error {
		pos, err := s.gw.Positions(ctx)
		if err != nil {
			return fmt.Errorf("fetch positions: %w", err)
		}
		s.store.ReplacePositions(pos)
		s.cachePut(ctx, cache.KeyPositions, pos)
		return nil
	})
}

func (s *Syncer) FetchStats(ctx context.Context) error {
	return s.timed(ctx, "fetch_stats", func() error {
		st, err := s.gw.Stats(ctx)
		if err != nil {
			return fmt.Errorf("fetch stats: %w", err)
		}
		s.store.ReplaceStats(st)
		s.cachePut(ctx, cache.KeyStats, st)
		return nil
	})
}

func (s *Syncer) FetchAccount(ctx context.Context) error {
	return s.timed(ctx, "fetch_account", func() error {
		acc, err := s.gw.Account(ctx)
		if err != nil {
			return fmt.Errorf("fetch account: %w", err)
		}
		s.store.ReplaceAccount(acc)
		s.cachePut(ctx, cache.KeyAccount, acc)
		return nil
	})
}

func (s *Syncer) FetchSettings(ctx context.Context) error {
	return s.timed(ctx, "fetch_settings", func() error {
		set, err := s.gw.Settings(ctx)
		if err != nil {
			return fmt.Errorf("fetch settings: %w", err)
		}
		s.store.ReplaceSettings(set)
		return nil
	})
}

// FetchChannelHealth polls the auxiliary channel-status endpoint.
func (s *Syncer) FetchChannelHealth(ctx context.Context) error {
	h, err := s.gw.ChannelStatus(ctx)
	if err != nil {
		return fmt.Errorf("fetch channel status: %w", err)
	}
	s.store.SetChannelHealth(h)
	return nil
}

func (s *Syncer) timed(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.RecordLatency(op, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError(op)
	}
	return err
}

func (s *Syncer) cachePut(ctx context.Context, key string, v any) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Put(ctx, key, v); err != nil {
		s.log.Debug("snapshot cache write failed", applogger.String("key", key), applogger.Error(err))
	}
}
