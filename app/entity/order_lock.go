package entity

import "time"

type OrderLock struct {
	OrderUID      string
	LockTimestamp int64
	CreatedAt     time.Time
}

// Age returns how long the lock has been held at now.
func (l *OrderLock) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(l.LockTimestamp, 0))
}
