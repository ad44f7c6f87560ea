package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
)

const shippingMethodColumns = `
	id, hpay_id, uid, name, description, enabled,
	price_table, price_multiplication, after_max_weight_price_per_kg, free_above_order_amount,
	additional_cost, cod_cost, shipping_currency, system_title,
	created_at, updated_at
`

type ShippingMethodRepository struct {
	db TxDB
}

func NewShippingMethodRepository(db TxDB) *ShippingMethodRepository {
	return &ShippingMethodRepository{db: db}
}

// ReplaceAll swaps the full method set in one transaction.
func (r *ShippingMethodRepository) ReplaceAll(ctx context.Context, methods []*entity.ShippingMethod) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM holestpay_shipping_methods`); err != nil {
		return err
	}

	query := `
		INSERT INTO holestpay_shipping_methods (
			hpay_id, uid, name, description, enabled,
			price_table, price_multiplication, after_max_weight_price_per_kg, free_above_order_amount,
			additional_cost, cod_cost, shipping_currency, system_title,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, method := range methods {
		result, err := tx.ExecContext(ctx, query,
			method.HPayID,
			method.UID,
			method.Name,
			method.Description,
			method.Enabled,
			method.PriceTable,
			nullableStringValue(method.PriceMultiplication),
			method.AfterMaxWeightPricePerKg.String(),
			nullableDecimalValue(method.FreeAboveOrderAmount),
			method.AdditionalCost,
			method.CODCost,
			method.ShippingCurrency,
			method.SystemTitle,
			method.CreatedAt,
			method.UpdatedAt,
		)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		method.ID = uint64(id)
	}

	return tx.Commit()
}

func (r *ShippingMethodRepository) ListEnabled(ctx context.Context) ([]*entity.ShippingMethod, error) {
	query := `SELECT ` + shippingMethodColumns + ` FROM holestpay_shipping_methods WHERE enabled = 1 ORDER BY hpay_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*entity.ShippingMethod
	for rows.Next() {
		item, err := scanShippingMethod(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ShippingMethodRepository) FindByHPayID(ctx context.Context, hpayID int64) (*entity.ShippingMethod, error) {
	query := `SELECT ` + shippingMethodColumns + ` FROM holestpay_shipping_methods WHERE hpay_id = ? LIMIT 1`

	item, err := scanShippingMethod(r.db.QueryRowContext(ctx, query, hpayID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShippingMethod(row rowScanner) (*entity.ShippingMethod, error) {
	var (
		item                entity.ShippingMethod
		description         sql.NullString
		priceTable          sql.NullString
		priceMultiplication sql.NullString
		freeAbove           decimal.NullDecimal
		systemTitle         sql.NullString
	)

	err := row.Scan(
		&item.ID,
		&item.HPayID,
		&item.UID,
		&item.Name,
		&description,
		&item.Enabled,
		&priceTable,
		&priceMultiplication,
		&item.AfterMaxWeightPricePerKg,
		&freeAbove,
		&item.AdditionalCost,
		&item.CODCost,
		&item.ShippingCurrency,
		&systemTitle,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Description = description.String
	item.PriceTable = priceTable.String
	item.PriceMultiplication = stringPtrFromNull(priceMultiplication)
	item.FreeAboveOrderAmount = decimalPtrFromNull(freeAbove)
	item.SystemTitle = systemTitle.String
	return &item, nil
}
