package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ShippingMethodCodePrefix = "holestpay_"
	DefaultShippingCurrency  = "USD"
)

type ShippingMethod struct {
	ID          uint64
	HPayID      int64
	UID         string
	Name        string
	Description string
	Enabled     bool

	PriceTable          string
	PriceMultiplication *string

	AfterMaxWeightPricePerKg decimal.Decimal
	FreeAboveOrderAmount     *decimal.Decimal
	AdditionalCost           string
	CODCost                  string
	ShippingCurrency         string
	SystemTitle              string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type PriceTableRow struct {
	MaxWeight float64
	Price     float64
}

type PriceMultiplicationTier struct {
	MinCartTotal   float64
	Multiplication float64
}
