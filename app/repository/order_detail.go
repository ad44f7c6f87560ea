package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
)

// FindItems returns every item row of the order, children included, in
// insertion order.
func (r *OrderRepository) FindItems(ctx context.Context, orderID uint64) ([]*entity.OrderItem, error) {
	query := `
		SELECT item_id, parent_item_id, product_id, product_type, name, sku,
			qty_ordered, price, row_total, tax_amount, is_virtual
		FROM sales_order_item
		WHERE order_id = ?
		ORDER BY item_id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*entity.OrderItem
	for rows.Next() {
		var (
			item        entity.OrderItem
			parentID    sql.NullInt64
			productID   sql.NullInt64
			productType sql.NullString
			name        sql.NullString
			sku         sql.NullString
			qty         decimal.NullDecimal
			price       decimal.NullDecimal
			rowTotal    decimal.NullDecimal
			taxAmount   decimal.NullDecimal
			isVirtual   sql.NullBool
		)
		if err := rows.Scan(
			&item.ID,
			&parentID,
			&productID,
			&productType,
			&name,
			&sku,
			&qty,
			&price,
			&rowTotal,
			&taxAmount,
			&isVirtual,
		); err != nil {
			return nil, err
		}

		item.ParentItemID = uint64PtrFromNull(parentID)
		item.ProductID = uint64PtrFromNull(productID)
		item.ProductType = productType.String
		item.Name = name.String
		item.SKU = sku.String
		item.QtyOrdered = qty.Decimal
		item.Price = price.Decimal
		item.RowTotal = rowTotal.Decimal
		item.TaxAmount = taxAmount.Decimal
		item.IsVirtual = isVirtual.Bool
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *OrderRepository) FindAddresses(ctx context.Context, orderID uint64) ([]*entity.OrderAddress, error) {
	query := `
		SELECT address_type, email, firstname, lastname, telephone, company,
			street, city, country_id, region, postcode
		FROM sales_order_address
		WHERE parent_id = ?
		ORDER BY entity_id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []*entity.OrderAddress
	for rows.Next() {
		var cols [11]sql.NullString
		dest := make([]interface{}, len(cols))
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		addresses = append(addresses, &entity.OrderAddress{
			AddressType: cols[0].String,
			Email:       cols[1].String,
			FirstName:   cols[2].String,
			LastName:    cols[3].String,
			Telephone:   cols[4].String,
			Company:     cols[5].String,
			Street:      cols[6].String,
			City:        cols[7].String,
			CountryID:   cols[8].String,
			Region:      cols[9].String,
			Postcode:    cols[10].String,
		})
	}
	return addresses, rows.Err()
}
