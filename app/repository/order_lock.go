package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
)

type OrderLockRepository struct {
	db DBTX
}

func NewOrderLockRepository(db DBTX) *OrderLockRepository {
	return &OrderLockRepository{db: db}
}

// Insert creates the lock row. It reports false without error when another
// holder already owns the row.
func (r *OrderLockRepository) Insert(ctx context.Context, orderUID string, lockTimestamp int64, createdAt time.Time) (bool, error) {
	query := `
		INSERT INTO holestpay_order_locks (order_uid, lock_timestamp, created_at)
		VALUES (?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, orderUID, lockTimestamp, createdAt); err != nil {
		if isDuplicateEntryError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *OrderLockRepository) Find(ctx context.Context, orderUID string) (*entity.OrderLock, error) {
	query := `
		SELECT order_uid, lock_timestamp, created_at
		FROM holestpay_order_locks
		WHERE order_uid = ?
	`

	var lock entity.OrderLock
	err := r.db.QueryRowContext(ctx, query, orderUID).Scan(&lock.OrderUID, &lock.LockTimestamp, &lock.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

// TakeOver refreshes a lock row only while it is still stale, so concurrent
// takeovers of the same expired lock admit a single winner.
func (r *OrderLockRepository) TakeOver(ctx context.Context, orderUID string, lockTimestamp, staleAtOrBefore int64, createdAt time.Time) (bool, error) {
	query := `
		UPDATE holestpay_order_locks
		SET lock_timestamp = ?, created_at = ?
		WHERE order_uid = ? AND lock_timestamp <= ?
	`

	result, err := r.db.ExecContext(ctx, query, lockTimestamp, createdAt, orderUID, staleAtOrBefore)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *OrderLockRepository) Delete(ctx context.Context, orderUID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holestpay_order_locks WHERE order_uid = ?`, orderUID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *OrderLockRepository) DeleteOlderThan(ctx context.Context, lockTimestamp int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holestpay_order_locks WHERE lock_timestamp < ?`, lockTimestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
