package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
	"github.com/vibast-solutions/ms-go-holestpay/app/types"
)

type fakeMerchantSyncer struct {
	synced bool
	err    error
}

func (s *fakeMerchantSyncer) SyncMerchantChange(context.Context, string) (bool, error) {
	return s.synced, s.err
}

type fakeLockInspector struct {
	locked map[string]bool
}

func (l *fakeLockInspector) IsLocked(_ context.Context, orderUID string) bool {
	return l.locked[orderUID]
}

type fakeShippingCatalog struct {
	methods  []*entity.ShippingMethod
	quoteErr error
}

func (c *fakeShippingCatalog) ListAvailableMethods(context.Context) ([]*entity.ShippingMethod, error) {
	return c.methods, nil
}

func (c *fakeShippingCatalog) QuoteShipping(_ context.Context, hpayID int64, _, _ float64, _ bool) (*service.ShippingQuote, error) {
	if c.quoteErr != nil {
		return nil, c.quoteErr
	}
	for _, method := range c.methods {
		if method.HPayID == hpayID {
			return &service.ShippingQuote{Method: method, Cost: decimal.RequireFromString("300")}, nil
		}
	}
	return nil, service.ErrShippingMethodNotFound
}

func newInternalFixture(results *fakeResultHandler, syncer *fakeMerchantSyncer) *InternalController {
	catalog := &fakeShippingCatalog{methods: []*entity.ShippingMethod{{HPayID: 12, UID: "dexpress", Name: "D Express", ShippingCurrency: "RSD", Enabled: true}}}
	return NewInternalController(results, syncer, &fakeLockInspector{locked: map[string]bool{"100000001": true}}, catalog)
}

func withParam(ctx echo.Context, name, value string) echo.Context {
	ctx.SetParamNames(name)
	ctx.SetParamValues(value)
	return ctx
}

func TestInternalGetOrder(t *testing.T) {
	results := &fakeResultHandler{findOrderFn: func(_ context.Context, orderUID string) (*entity.Order, error) {
		if orderUID != "100000001" {
			return nil, service.ErrOrderNotFound
		}
		return &entity.Order{ID: 1, IncrementID: "100000001", Status: entity.OrderStatusProcessing, GrandTotal: decimal.RequireFromString("10")}, nil
	}}
	controller := newInternalFixture(results, &fakeMerchantSyncer{})

	ctx, rec := newRecorderContext(http.MethodGet, "/internal/orders/100000001", "", "")
	_ = controller.GetOrder(withParam(ctx, "uid", "100000001"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp types.OrderEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Order.IncrementID != "100000001" || resp.Order.GrandTotal != "10.00" {
		t.Fatalf("unexpected order: %+v", resp.Order)
	}

	ctx, rec = newRecorderContext(http.MethodGet, "/internal/orders/404", "", "")
	_ = controller.GetOrder(withParam(ctx, "uid", "404"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInternalSyncOrder(t *testing.T) {
	cases := []struct {
		name   string
		syncer *fakeMerchantSyncer
		want   int
	}{
		{name: "synced", syncer: &fakeMerchantSyncer{synced: true}, want: http.StatusOK},
		{name: "not found", syncer: &fakeMerchantSyncer{err: service.ErrOrderNotFound}, want: http.StatusNotFound},
		{name: "rejected", syncer: &fakeMerchantSyncer{err: provider.ErrSyncRejected}, want: http.StatusBadGateway},
		{name: "failed", syncer: &fakeMerchantSyncer{err: errors.New("timeout")}, want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			controller := newInternalFixture(&fakeResultHandler{}, tc.syncer)
			ctx, rec := newRecorderContext(http.MethodPost, "/internal/orders/100000001/sync", "", "")

			_ = controller.SyncOrder(withParam(ctx, "uid", "100000001"))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestInternalGetLock(t *testing.T) {
	controller := newInternalFixture(&fakeResultHandler{}, &fakeMerchantSyncer{})

	ctx, rec := newRecorderContext(http.MethodGet, "/internal/locks/100000001", "", "")
	_ = controller.GetLock(withParam(ctx, "uid", "100000001"))
	var resp types.LockStatusResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Locked || resp.OrderUID != "100000001" {
		t.Fatalf("unexpected lock response: %+v", resp)
	}

	ctx, rec = newRecorderContext(http.MethodGet, "/internal/locks/", "", "")
	_ = controller.GetLock(withParam(ctx, "uid", " "))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank uid, got %d", rec.Code)
	}
}

func TestInternalShipping(t *testing.T) {
	controller := newInternalFixture(&fakeResultHandler{}, &fakeMerchantSyncer{})

	ctx, rec := newRecorderContext(http.MethodGet, "/internal/shipping/methods", "", "")
	_ = controller.ListShippingMethods(ctx)
	var list types.ListShippingMethodsResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Methods) != 1 || list.Methods[0].Code != "holestpay_12" {
		t.Fatalf("unexpected methods: %s", rec.Body.String())
	}

	ctx, rec = newRecorderContext(http.MethodGet, "/internal/shipping/methods/12/quote?weight=500&cart_amount=10", "", "")
	_ = controller.QuoteShipping(withParam(ctx, "id", "12"))
	var quote types.ShippingQuoteResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &quote)
	if rec.Code != http.StatusOK || quote.Cost != "300.00" || quote.Currency != "RSD" {
		t.Fatalf("unexpected quote: %d %s", rec.Code, rec.Body.String())
	}

	ctx, rec = newRecorderContext(http.MethodGet, "/internal/shipping/methods/99/quote", "", "")
	_ = controller.QuoteShipping(withParam(ctx, "id", "99"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	ctx, rec = newRecorderContext(http.MethodGet, "/internal/shipping/methods/abc/quote", "", "")
	_ = controller.QuoteShipping(withParam(ctx, "id", "abc"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
