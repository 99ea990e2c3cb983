package durable

import (
	"context"
	"strings"
	"time"
)

// recordBatch writes one row to monitoring_batches describing a
// completed (or partially completed) batch write. Monitoring writes are
// best-effort: a failure here is logged but never surfaces to the
// caller, since the batch itself already succeeded or failed on its own
// terms.
func (s *Store) recordBatch(ctx context.Context, kind string, total, succeeded, failed int) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitoring_batches (batch_kind, total_rows, succeeded_rows, failed_rows, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`, kind, total, succeeded, failed, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Warn("failed to record batch monitoring row")
	}
}

// recordOperation writes one row to monitoring_operations describing a
// single durable-store call. Like recordBatch, failures here are logged
// and swallowed.
func (s *Store) recordOperation(ctx context.Context, operation, resource string, succeeded bool, duration time.Duration) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitoring_operations (operation, resource, succeeded, duration_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`, operation, resource, succeeded, duration.Milliseconds(), time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Warn("failed to record operation monitoring row")
	}
}

// resourceForOperation extracts the entity kind an operation name acts
// on (e.g. "store_episode" -> "episode") for monitoring_operations'
// resource column. Operations with no recognizable entity kind are
// recorded against "unknown" rather than silently skipped.
func resourceForOperation(operation string) string {
	for _, resource := range []string{"episode", "pattern", "heuristic", "embedding"} {
		if strings.Contains(operation, resource) {
			return resource
		}
	}
	return "unknown"
}
