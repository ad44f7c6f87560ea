package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
)

const orderSelectColumns = `
	o.entity_id, o.increment_id, o.quote_id, o.customer_id,
	o.status, o.state, o.grand_total, o.order_currency_code, o.shipping_method, p.method,
	o.shipping_description, o.shipping_amount, o.shipping_tax_amount,
	o.hpay_status, o.holestpay_uid, o.hpay_data,
	o.created_at, o.updated_at
`

const orderFromClause = `
	FROM sales_order o
	LEFT JOIN sales_order_payment p ON p.parent_id = o.entity_id
`

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint64) (*entity.Order, error) {
	query := `SELECT ` + orderSelectColumns + orderFromClause + ` WHERE o.entity_id = ? LIMIT 1`
	return r.scanOrder(r.db.QueryRowContext(ctx, query, id))
}

func (r *OrderRepository) FindByIncrementID(ctx context.Context, incrementID string) (*entity.Order, error) {
	query := `SELECT ` + orderSelectColumns + orderFromClause + ` WHERE o.increment_id = ? LIMIT 1`
	return r.scanOrder(r.db.QueryRowContext(ctx, query, incrementID))
}

func (r *OrderRepository) FindByHolestPayUID(ctx context.Context, uid string) (*entity.Order, error) {
	query := `SELECT ` + orderSelectColumns + orderFromClause + ` WHERE o.holestpay_uid = ? ORDER BY o.entity_id DESC LIMIT 1`
	return r.scanOrder(r.db.QueryRowContext(ctx, query, uid))
}

func (r *OrderRepository) FindByQuoteID(ctx context.Context, quoteID uint64) (*entity.Order, error) {
	query := `SELECT ` + orderSelectColumns + orderFromClause + ` WHERE o.quote_id = ? ORDER BY o.entity_id DESC LIMIT 1`
	return r.scanOrder(r.db.QueryRowContext(ctx, query, quoteID))
}

// Update writes the merchant status pair and the HolestPay columns. MySQL
// reports zero affected rows for no-op writes, so that is not treated as a miss.
func (r *OrderRepository) Update(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE sales_order SET
			status = ?,
			state = ?,
			hpay_status = ?,
			holestpay_uid = ?,
			hpay_data = ?,
			updated_at = ?
		WHERE entity_id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		order.Status,
		order.State,
		nullableStringValue(order.HPayStatus),
		nullableStringValue(order.HolestPayUID),
		nullableStringValue(order.HPayData),
		order.UpdatedAt,
		order.ID,
	)
	return err
}

// SyncGrid mirrors the columns shown in the admin order grid.
func (r *OrderRepository) SyncGrid(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE sales_order_grid SET
			status = ?,
			hpay_status = ?,
			holestpay_uid = ?
		WHERE entity_id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		order.Status,
		nullableStringValue(order.HPayStatus),
		nullableStringValue(order.HolestPayUID),
		order.ID,
	)
	return err
}

func (r *OrderRepository) scanOrder(row *sql.Row) (*entity.Order, error) {
	var (
		order          entity.Order
		incrementID    sql.NullString
		status         sql.NullString
		state          sql.NullString
		quoteID        sql.NullInt64
		customerID     sql.NullInt64
		grandTotal     decimal.NullDecimal
		currencyCode   sql.NullString
		shippingMethod sql.NullString
		paymentMethod  sql.NullString
		shippingDesc   sql.NullString
		shippingAmount decimal.NullDecimal
		shippingTax    decimal.NullDecimal
		hpayStatus     sql.NullString
		holestPayUID   sql.NullString
		hpayData       sql.NullString
		updatedAt      sql.NullTime
	)

	err := row.Scan(
		&order.ID,
		&incrementID,
		&quoteID,
		&customerID,
		&status,
		&state,
		&grandTotal,
		&currencyCode,
		&shippingMethod,
		&paymentMethod,
		&shippingDesc,
		&shippingAmount,
		&shippingTax,
		&hpayStatus,
		&holestPayUID,
		&hpayData,
		&order.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	order.IncrementID = incrementID.String
	order.Status = status.String
	order.State = state.String
	order.QuoteID = uint64PtrFromNull(quoteID)
	order.CustomerID = uint64PtrFromNull(customerID)
	if grandTotal.Valid {
		order.GrandTotal = grandTotal.Decimal
	}
	order.CurrencyCode = currencyCode.String
	order.ShippingMethod = stringPtrFromNull(shippingMethod)
	order.PaymentMethod = stringPtrFromNull(paymentMethod)
	order.ShippingDescription = stringPtrFromNull(shippingDesc)
	order.ShippingAmount = shippingAmount.Decimal
	order.ShippingTaxAmount = shippingTax.Decimal
	order.HPayStatus = stringPtrFromNull(hpayStatus)
	order.HolestPayUID = stringPtrFromNull(holestPayUID)
	order.HPayData = stringPtrFromNull(hpayData)
	if updatedAt.Valid {
		order.UpdatedAt = updatedAt.Time
	}

	return &order, nil
}
