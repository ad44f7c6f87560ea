package service

import (
	"regexp"
	"strings"

	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
)

// ReconcileOutcome reports what Reconcile did to the merchant status.
type ReconcileOutcome int

const (
	ReconcileNoMapping ReconcileOutcome = iota
	ReconcileUnchanged
	ReconcileChanged
)

func (o ReconcileOutcome) String() string {
	switch o {
	case ReconcileChanged:
		return "changed"
	case ReconcileUnchanged:
		return "unchanged"
	default:
		return "no_mapping"
	}
}

var paymentStatusPattern = regexp.MustCompile(`^PAYMENT:([^\s]+)`)

var paymentTokenToStatus = map[string]string{
	"SUCCESS":            entity.OrderStatusProcessing,
	"PAID":               entity.OrderStatusProcessing,
	"PAYING":             entity.OrderStatusProcessing,
	"AWAITING":           entity.OrderStatusPendingPayment,
	"OVERDUE":            entity.OrderStatusPendingPayment,
	"RESERVED":           entity.OrderStatusPendingPayment,
	"OBLIGATED":          entity.OrderStatusPendingPayment,
	"REFUNDED":           entity.OrderStatusClosed,
	"PARTIALLY-REFUNDED": entity.OrderStatusProcessing,
	"VOID":               entity.OrderStatusCanceled,
	"EXPIRED":            entity.OrderStatusCanceled,
	"REFUSED":            entity.OrderStatusCanceled,
	"FAILED":             entity.OrderStatusCanceled,
	"CANCELED":           entity.OrderStatusCanceled,
}

var statusToState = map[string]string{
	entity.OrderStatusPending:        entity.OrderStateNew,
	entity.OrderStatusPendingPayment: entity.OrderStatePendingPayment,
	entity.OrderStatusProcessing:     entity.OrderStateProcessing,
	entity.OrderStatusComplete:       entity.OrderStateComplete,
	entity.OrderStatusClosed:         entity.OrderStateClosed,
	entity.OrderStatusCanceled:       entity.OrderStateCanceled,
	entity.OrderStatusHolded:         entity.OrderStateHolded,
}

var merchantStatusToPayment = map[string]string{
	entity.OrderStatusCanceled:       "PAYMENT:CANCELED",
	entity.OrderStatusClosed:         "PAYMENT:REFUNDED",
	entity.OrderStatusProcessing:     "PAYMENT:PAID",
	entity.OrderStatusPendingPayment: "PAYMENT:AWAITING",
}

var successKeywords = []string{"SUCCESS", "PAID", "PAYING", "RESERVED", "OBLIGATED", "AWAITING"}

// ExtractPaymentStatus returns the token following a leading "PAYMENT:".
func ExtractPaymentStatus(raw string) (string, bool) {
	match := paymentStatusPattern.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func MapToMerchantStatus(token string) (string, string, bool) {
	status, ok := paymentTokenToStatus[token]
	if !ok {
		return "", "", false
	}
	state, ok := statusToState[status]
	if !ok {
		return "", "", false
	}
	return status, state, true
}

// StateForStatus returns the order state a merchant status belongs to.
func StateForStatus(status string) (string, bool) {
	state, ok := statusToState[status]
	return state, ok
}

// MapMerchantStatusToHPay is the reverse mapping used when pushing merchant
// side changes to HolestPay.
func MapMerchantStatusToHPay(status string) (string, bool) {
	hpay, ok := merchantStatusToPayment[status]
	return hpay, ok
}

// IsSuccessByKeyword is a loose match used only to pick the result page.
func IsSuccessByKeyword(raw string) bool {
	upper := strings.ToUpper(raw)
	for _, keyword := range successKeywords {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	return false
}

// Reconcile records raw as the order's hpay_status and moves the merchant
// status when the token maps to a different one. Repeating a call with the
// same input reports ReconcileUnchanged.
func Reconcile(order *entity.Order, raw string) ReconcileOutcome {
	hpayStatus := raw
	order.HPayStatus = &hpayStatus

	token, ok := ExtractPaymentStatus(raw)
	if !ok {
		return ReconcileNoMapping
	}
	status, state, ok := MapToMerchantStatus(token)
	if !ok {
		return ReconcileNoMapping
	}
	if order.Status == status {
		return ReconcileUnchanged
	}

	order.Status = status
	order.State = state
	return ReconcileChanged
}
