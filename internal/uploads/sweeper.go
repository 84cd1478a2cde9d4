package uploads

import (
	"context"
	"errors"
	"time"

	"cv-review-backend/internal/shared/telemetry"
)

// Sweeper fails processing rows whose lease expired, so a crashed review
// cannot leave an upload stuck forever.
type Sweeper struct {
	Repo  Repo
	Lease time.Duration
}

const staleLeaseMessage = "processing lease expired before the review finished"

// RunOnce sweeps once and returns how many rows were failed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	if s.Repo == nil {
		return 0, errors.New("repo not configured")
	}
	lease := s.Lease
	if lease <= 0 {
		lease = 10 * time.Minute
	}

	cutoff := time.Now().UTC().Add(-lease)
	swept, err := s.Repo.FailStaleProcessing(ctx, cutoff, ErrorCodeLeaseExpired, staleLeaseMessage)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		telemetry.Warn("sweeper.swept", map[string]any{
			"count":    swept,
			"cutoff":   cutoff.Format(time.RFC3339),
			"lease_ms": lease.Milliseconds(),
		})
	}
	return swept, nil
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				telemetry.Error("sweeper.run", map[string]any{"error": err.Error()})
			}
		}
	}
}
