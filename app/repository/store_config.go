package repository

import "context"

// StoreConfigRepository writes default-scope values into the store's
// core_config_data table.
type StoreConfigRepository struct {
	db DBTX
}

func NewStoreConfigRepository(db DBTX) *StoreConfigRepository {
	return &StoreConfigRepository{db: db}
}

func (r *StoreConfigRepository) SetDefault(ctx context.Context, path, value string) error {
	query := `
		INSERT INTO core_config_data (scope, scope_id, path, value)
		VALUES ('default', 0, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)
	`

	_, err := r.db.ExecContext(ctx, query, path, value)
	return err
}
