package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
)

type PosConfigurationRepository struct {
	db DBTX
}

func NewPosConfigurationRepository(db DBTX) *PosConfigurationRepository {
	return &PosConfigurationRepository{db: db}
}

func (r *PosConfigurationRepository) FindByEnvironment(ctx context.Context, environment string) (*entity.PosConfiguration, error) {
	query := `
		SELECT id, environment, data, created_at, updated_at
		FROM holestpay_configuration
		WHERE environment = ?
	`

	var cfg entity.PosConfiguration
	err := r.db.QueryRowContext(ctx, query, environment).Scan(
		&cfg.ID,
		&cfg.Environment,
		&cfg.Data,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// Upsert keeps one document per environment; created_at survives updates.
func (r *PosConfigurationRepository) Upsert(ctx context.Context, cfg *entity.PosConfiguration) error {
	query := `
		INSERT INTO holestpay_configuration (environment, data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query, cfg.Environment, cfg.Data, cfg.CreatedAt, cfg.UpdatedAt)
	return err
}
