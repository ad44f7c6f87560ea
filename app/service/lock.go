package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/metrics"
	"github.com/vibast-solutions/ms-go-holestpay/config"
)

const (
	lockResultAcquired = "acquired"
	lockResultTakeover = "expired_takeover"
	lockResultTimeout  = "timeout"
	lockResultError    = "error"
)

type orderLockRepository interface {
	Insert(ctx context.Context, orderUID string, lockTimestamp int64, createdAt time.Time) (bool, error)
	Find(ctx context.Context, orderUID string) (*entity.OrderLock, error)
	TakeOver(ctx context.Context, orderUID string, lockTimestamp, staleAtOrBefore int64, createdAt time.Time) (bool, error)
	Delete(ctx context.Context, orderUID string) (bool, error)
	DeleteOlderThan(ctx context.Context, lockTimestamp int64) (int64, error)
}

// sleepFunc blocks for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OrderLockManager serializes work on a single provider order across
// processes using rows in holestpay_order_locks. Storage errors are logged
// and reported as a failed lock operation.
type OrderLockManager struct {
	repo    orderLockRepository
	cfg     config.LockConfig
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
	now     func() time.Time
	sleep   sleepFunc
}

func NewOrderLockManager(repo orderLockRepository, cfg config.LockConfig, m *metrics.Metrics) *OrderLockManager {
	if cfg.ExpireAfter <= 0 {
		cfg.ExpireAfter = 16 * time.Second
	}
	if cfg.PruneAfter <= 0 {
		cfg.PruneAfter = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}

	return &OrderLockManager{
		repo:    repo,
		cfg:     cfg,
		metrics: m,
		logger:  factory.NewModuleLogger("order-lock"),
		now:     func() time.Time { return time.Now().UTC() },
		sleep:   contextSleep,
	}
}

// Lock acquires the lock for orderUID, waiting for a concurrent holder to
// release it. A holder older than the expiry threshold is taken over.
func (m *OrderLockManager) Lock(ctx context.Context, orderUID string) bool {
	started := m.now()
	logger := m.logger.WithField("order_uid", orderUID)

	acquired, result := m.tryAcquire(ctx, orderUID, logger)
	if acquired {
		m.metrics.ObserveLock(result, m.now().Sub(started).Seconds())
		return true
	}

	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		if err := m.sleep(ctx, m.cfg.RetryInterval); err != nil {
			logger.WithError(err).Warn("order lock wait cancelled")
			m.metrics.ObserveLock(lockResultTimeout, m.now().Sub(started).Seconds())
			return false
		}

		acquired, result = m.tryAcquire(ctx, orderUID, logger)
		if acquired {
			m.metrics.ObserveLock(result, m.now().Sub(started).Seconds())
			return true
		}

		m.prune(ctx, logger)
	}

	logger.WithField("attempts", m.cfg.MaxRetries).Warn("order lock acquisition timed out")
	m.metrics.ObserveLock(lockResultTimeout, m.now().Sub(started).Seconds())
	return false
}

func (m *OrderLockManager) tryAcquire(ctx context.Context, orderUID string, logger logrus.FieldLogger) (bool, string) {
	now := m.now()

	inserted, err := m.repo.Insert(ctx, orderUID, now.Unix(), now)
	if err != nil {
		logger.WithError(err).Error("order lock insert failed")
		return false, lockResultError
	}
	if inserted {
		return true, lockResultAcquired
	}

	existing, err := m.repo.Find(ctx, orderUID)
	if err != nil {
		logger.WithError(err).Error("order lock read failed")
		return false, lockResultError
	}
	if existing == nil || existing.Age(now) < m.cfg.ExpireAfter {
		return false, ""
	}

	staleAt := now.Add(-m.cfg.ExpireAfter).Unix()
	taken, err := m.repo.TakeOver(ctx, orderUID, now.Unix(), staleAt, now)
	if err != nil {
		logger.WithError(err).Error("order lock takeover failed")
		return false, lockResultError
	}
	if taken {
		logger.WithField("lock_age", existing.Age(now).String()).Warn("expired order lock taken over")
		return true, lockResultTakeover
	}
	return false, ""
}

func (m *OrderLockManager) prune(ctx context.Context, logger logrus.FieldLogger) {
	cutoff := m.now().Add(-m.cfg.PruneAfter).Unix()
	removed, err := m.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.WithError(err).Warn("stale order lock sweep failed")
		return
	}
	m.metrics.AddSwept(removed)
}

// Unlock reports whether a lock row was actually removed.
func (m *OrderLockManager) Unlock(ctx context.Context, orderUID string) bool {
	removed, err := m.repo.Delete(ctx, orderUID)
	if err != nil {
		m.logger.WithError(err).WithField("order_uid", orderUID).Error("order unlock failed")
		return false
	}
	return removed
}

// IsLocked treats locks older than the prune threshold as released.
func (m *OrderLockManager) IsLocked(ctx context.Context, orderUID string) bool {
	existing, err := m.repo.Find(ctx, orderUID)
	if err != nil {
		m.logger.WithError(err).WithField("order_uid", orderUID).Error("order lock read failed")
		return false
	}
	if existing == nil {
		return false
	}
	return existing.Age(m.now()) < m.cfg.PruneAfter
}
