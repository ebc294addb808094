package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avolkov/banksync/internal/logger"
)

// Scheduler publishes the cron-shaped sweeps on fixed intervals: the sync
// sweep and the five connection health scans. Event-driven kinds (user
// sync, document processing) are published by their triggers, not here.
type Scheduler struct {
	publisher      Publisher
	syncInterval   time.Duration
	healthInterval time.Duration
}

// NewScheduler creates a scheduler publishing to the given queue.
func NewScheduler(publisher Publisher, syncInterval, healthInterval time.Duration) *Scheduler {
	return &Scheduler{
		publisher:      publisher,
		syncInterval:   syncInterval,
		healthInterval: healthInterval,
	}
}

// Run publishes sweep jobs until the context is cancelled. One round is
// published immediately at startup.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.FromContext(ctx)

	syncTicker := time.NewTicker(s.syncInterval)
	defer syncTicker.Stop()
	healthTicker := time.NewTicker(s.healthInterval)
	defer healthTicker.Stop()

	s.publishSync(ctx)
	s.publishHealthScans(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-syncTicker.C:
			s.publishSync(ctx)
		case <-healthTicker.C:
			s.publishHealthScans(ctx)
		}
	}
}

func (s *Scheduler) publishSync(ctx context.Context) {
	if err := s.publisher.Publish(ctx, &Job{Kind: KindSyncSweep}); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("failed to publish sync sweep")
	}
}

func (s *Scheduler) publishHealthScans(ctx context.Context) {
	log := logger.FromContext(ctx)

	scans := []string{ScanDisconnected, ScanAbandonment, ScanExpiring, ScanExpiry, ScanReconnectAlert}
	for _, scan := range scans {
		payload, err := json.Marshal(HealthScanPayload{Scan: scan})
		if err != nil {
			log.Error().Err(err).Str("scan", scan).Msg("failed to encode health scan payload")
			continue
		}
		if err := s.publisher.Publish(ctx, &Job{Kind: KindHealthScan, Payload: payload}); err != nil {
			log.Error().Err(err).Str("scan", scan).Msg("failed to publish health scan")
		}
	}
}
