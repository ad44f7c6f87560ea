package service

import (
	"context"
)

// RunLockSweepBatch removes lock rows older than the prune threshold. Lock
// itself sweeps while it waits; this covers rows left behind by crashed
// workers when no one contends for the same order.
func (m *OrderLockManager) RunLockSweepBatch(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-m.cfg.PruneAfter).Unix()
	removed, err := m.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	m.metrics.AddSwept(removed)
	if removed > 0 {
		m.logger.WithField("removed", removed).Info("stale order locks swept")
	}
	return removed, nil
}
