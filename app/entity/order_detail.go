package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	OrderItemTypeFee = "fee"

	AddressTypeBilling  = "billing"
	AddressTypeShipping = "shipping"

	PaymentMethodCashOnDelivery = "cashondelivery"
)

// OrderItem is one sales_order_item row. Configurable children carry a
// ParentItemID.
type OrderItem struct {
	ID           uint64
	ParentItemID *uint64
	ProductID    *uint64
	ProductType  string
	Name         string
	SKU          string

	QtyOrdered decimal.Decimal
	Price      decimal.Decimal
	RowTotal   decimal.Decimal
	TaxAmount  decimal.Decimal

	IsVirtual bool
}

func (i *OrderItem) HasParent() bool {
	return i.ParentItemID != nil && *i.ParentItemID != 0
}

func (i *OrderItem) IsFee() bool {
	return i.ProductType == OrderItemTypeFee
}

type OrderAddress struct {
	AddressType string
	Email       string
	FirstName   string
	LastName    string
	Telephone   string
	Company     string
	Street      string
	City        string
	CountryID   string
	Region      string
	Postcode    string
}

// StreetLine joins the newline separated street lines with single spaces.
func (a *OrderAddress) StreetLine() string {
	lines := strings.Split(a.Street, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func FindAddress(addresses []*OrderAddress, addressType string) *OrderAddress {
	for _, address := range addresses {
		if address != nil && address.AddressType == addressType {
			return address
		}
	}
	return nil
}
