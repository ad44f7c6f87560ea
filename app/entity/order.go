package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending        = "pending"
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusProcessing     = "processing"
	OrderStatusComplete       = "complete"
	OrderStatusClosed         = "closed"
	OrderStatusCanceled       = "canceled"
	OrderStatusHolded         = "holded"
)

const (
	OrderStateNew            = "new"
	OrderStatePendingPayment = "pending_payment"
	OrderStateProcessing     = "processing"
	OrderStateComplete       = "complete"
	OrderStateClosed         = "closed"
	OrderStateCanceled       = "canceled"
	OrderStateHolded         = "holded"
)

// Channels that can mark an order as being updated from a provider message.
const (
	ProcessingChannelWebhook   = "webhook"
	ProcessingChannelForwarded = "forwarded_response"
)

// Order is the store's sales order row plus the HolestPay extension columns.
type Order struct {
	ID          uint64
	IncrementID string
	QuoteID     *uint64
	CustomerID  *uint64

	Status string
	State  string

	GrandTotal     decimal.Decimal
	CurrencyCode   string
	ShippingMethod *string
	PaymentMethod  *string

	ShippingDescription *string
	ShippingAmount      decimal.Decimal
	ShippingTaxAmount   decimal.Decimal

	HPayStatus   *string
	HolestPayUID *string
	HPayData     *string

	CreatedAt time.Time
	UpdatedAt time.Time

	processingChannel string
}

// MarkProcessing flags the in-memory order as being written by a provider
// channel. The flag is never persisted.
func (o *Order) MarkProcessing(channel string) {
	o.processingChannel = channel
}

func (o *Order) ClearProcessing() {
	o.processingChannel = ""
}

func (o *Order) ProcessingChannel() string {
	return o.processingChannel
}

func (o *Order) IsProcessing() bool {
	return o.processingChannel != ""
}

func (o *Order) HasHolestPayUID() bool {
	return o.HolestPayUID != nil && strings.TrimSpace(*o.HolestPayUID) != ""
}

// ProviderUID is the identifier HolestPay knows the order by.
func (o *Order) ProviderUID() string {
	if o.HasHolestPayUID() {
		return strings.TrimSpace(*o.HolestPayUID)
	}
	return o.IncrementID
}

func (o *Order) HPayStatusValue() string {
	if o.HPayStatus == nil {
		return ""
	}
	return *o.HPayStatus
}

func (o *Order) HPayDataValue() string {
	if o.HPayData == nil {
		return ""
	}
	return *o.HPayData
}
