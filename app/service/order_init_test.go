package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
)

func TestInitializeOrderAppliesConfiguredStatus(t *testing.T) {
	order := testOrder(3, "100000003")
	order.Status = entity.OrderStatusPending
	order.State = entity.OrderStateNew
	order.QuoteID = uint64Ptr(42)
	store := newFakeOrderStore(order)

	cfg := newFakeSettings()
	cfg.newOrderStatus = entity.OrderStatusProcessing
	svc := NewOrderInitializer(store, cfg)

	got, err := svc.InitializeOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != entity.OrderStatusProcessing || got.State != entity.OrderStateProcessing {
		t.Fatalf("unexpected status/state: %s/%s", got.Status, got.State)
	}
	if store.get(3).Status != entity.OrderStatusProcessing || store.gridSynced != 1 {
		t.Fatal("expected order to be persisted and grid synced")
	}
}

func TestInitializeOrderDefaultsToPendingPayment(t *testing.T) {
	order := testOrder(3, "100000003")
	order.Status = entity.OrderStatusPending
	order.QuoteID = uint64Ptr(42)

	cfg := newFakeSettings()
	cfg.newOrderStatus = ""
	svc := NewOrderInitializer(newFakeOrderStore(order), cfg)

	got, err := svc.InitializeOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != entity.OrderStatusPendingPayment || got.State != entity.OrderStatePendingPayment {
		t.Fatalf("unexpected status/state: %s/%s", got.Status, got.State)
	}
}

func TestInitializeOrderUnknownStatusUsesPendingPaymentState(t *testing.T) {
	order := testOrder(3, "100000003")
	order.QuoteID = uint64Ptr(42)

	cfg := newFakeSettings()
	cfg.newOrderStatus = "awaiting_holestpay"
	svc := NewOrderInitializer(newFakeOrderStore(order), cfg)

	got, err := svc.InitializeOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != "awaiting_holestpay" || got.State != entity.OrderStatePendingPayment {
		t.Fatalf("unexpected status/state: %s/%s", got.Status, got.State)
	}
}

func TestInitializeOrderErrors(t *testing.T) {
	svc := NewOrderInitializer(newFakeOrderStore(), newFakeSettings())

	if _, err := svc.InitializeOrder(context.Background(), 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.InitializeOrder(context.Background(), 99); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
