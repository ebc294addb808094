package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avolkov/banksync/internal/jobs"
	"github.com/avolkov/banksync/internal/logger"
)

// NewJobHandler routes queue jobs to the pipeline components. Unknown kinds
// and undecodable payloads fail the job.
func NewJobHandler(monitor *HealthMonitor, engine *SyncEngine, ingestor *Ingestor) jobs.Handler {
	return func(ctx context.Context, job *jobs.Job) error {
		log := logger.FromContext(ctx).With().
			Str("job_id", job.ID).
			Str("kind", string(job.Kind)).
			Logger()
		ctx = logger.WithContext(ctx, log)

		switch job.Kind {
		case jobs.KindSyncSweep:
			result, err := engine.RunSweep(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("total", result.Total).Int("failed", result.Failed).Msg("sync sweep finished")
			return nil

		case jobs.KindSyncUser:
			var payload jobs.SyncUserPayload
			if err := json.Unmarshal(job.Payload, &payload); err != nil {
				return fmt.Errorf("decode sync-user payload: %w", err)
			}
			_, err := engine.SyncUser(ctx, payload.UserID)
			return err

		case jobs.KindProcessDocument:
			var payload jobs.ProcessDocumentPayload
			if err := json.Unmarshal(job.Payload, &payload); err != nil {
				return fmt.Errorf("decode process-document payload: %w", err)
			}
			result, err := ingestor.ProcessUpload(ctx, UploadInput{
				TeamID:      payload.TeamID,
				FilePath:    payload.FilePath,
				ContentType: payload.ContentType,
				Size:        payload.Size,
			})
			if err != nil {
				return err
			}
			log.Info().Str("inbox_id", result.InboxID).Str("status", string(result.Status)).
				Bool("success", result.Success).Msg("document processed")
			return nil

		case jobs.KindReprocessDocument:
			var payload jobs.ReprocessDocumentPayload
			if err := json.Unmarshal(job.Payload, &payload); err != nil {
				return fmt.Errorf("decode reprocess-document payload: %w", err)
			}
			_, err := ingestor.Reprocess(ctx, payload.InboxID)
			return err

		case jobs.KindHealthScan:
			var payload jobs.HealthScanPayload
			if err := json.Unmarshal(job.Payload, &payload); err != nil {
				return fmt.Errorf("decode health-scan payload: %w", err)
			}
			return runHealthScan(ctx, monitor, payload.Scan)

		default:
			return fmt.Errorf("unknown job kind: %s", job.Kind)
		}
	}
}

func runHealthScan(ctx context.Context, monitor *HealthMonitor, scan string) error {
	var (
		result *ScanResult
		err    error
	)

	switch scan {
	case jobs.ScanDisconnected:
		result, err = monitor.RunDisconnectedScan(ctx)
	case jobs.ScanAbandonment:
		result, err = monitor.RunAbandonmentSweep(ctx)
	case jobs.ScanExpiring:
		result, err = monitor.RunExpiringScan(ctx)
	case jobs.ScanExpiry:
		result, err = monitor.RunExpiryFinalization(ctx)
	case jobs.ScanReconnectAlert:
		result, err = monitor.RunReconnectAlertScan(ctx)
	default:
		return fmt.Errorf("unknown health scan: %s", scan)
	}
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("scan", scan).
		Int("total", result.Total).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("health scan finished")
	return nil
}
