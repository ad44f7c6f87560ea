package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/metrics"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
)

type fakeStoreClient struct {
	requests []*payload.Object
	err      error
}

func (c *fakeStoreClient) StoreOrder(_ context.Context, requestData *payload.Object) (*provider.StoreOrderResult, error) {
	c.requests = append(c.requests, requestData)
	if c.err != nil {
		return nil, c.err
	}
	return &provider.StoreOrderResult{Status: "PAYMENT:PAID", RequestTime: "1700000000"}, nil
}

type fakeFiscal struct {
	enabled bool
}

func (f fakeFiscal) FiscalMethodsEnabled(context.Context) bool {
	return f.enabled
}

func newTestSyncService(store *fakeOrderStore, client *fakeStoreClient, cfg *fakeSettings, fiscal fiscalChecker) (*OrderSyncService, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	svc := NewOrderSyncService(store, client, newFakeSigner(), fiscal, cfg, m)
	svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return svc, m
}

func TestShouldSync(t *testing.T) {
	withUID := testOrder(1, "100000001")
	withUID.HolestPayUID = strPtr("hp-1")

	processing := testOrder(2, "100000002")
	processing.HolestPayUID = strPtr("hp-2")
	processing.MarkProcessing(entity.ProcessingChannelWebhook)

	plain := testOrder(3, "100000003")

	cases := []struct {
		name           string
		order          *entity.Order
		isStatusChange bool
		manageAll      bool
		fiscal         bool
		want           bool
	}{
		{name: "holestpay order", order: withUID, want: true},
		{name: "order written by a provider message", order: processing, want: false},
		{name: "plain order", order: plain, want: false},
		{name: "manage all orders on status change", order: plain, isStatusChange: true, manageAll: true, want: true},
		{name: "manage all orders without status change", order: plain, manageAll: true, want: false},
		{name: "fiscal methods enabled", order: plain, fiscal: true, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newFakeSettings()
			cfg.manageAll = tc.manageAll
			svc, _ := newTestSyncService(newFakeOrderStore(), &fakeStoreClient{}, cfg, fakeFiscal{enabled: tc.fiscal})
			if got := svc.ShouldSync(context.Background(), tc.order, tc.isStatusChange); got != tc.want {
				t.Fatalf("ShouldSync() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSyncOrderBuildsSignedRequest(t *testing.T) {
	order := testOrder(7, "100000007")
	order.Status = entity.OrderStatusCanceled
	order.CustomerID = uint64Ptr(42)
	order.PaymentMethod = strPtr("holestpay")
	order.ShippingMethod = strPtr("holestpay_12")
	order.ShippingDescription = strPtr("Courier")
	order.ShippingAmount = decimal.RequireFromString("4.5000")
	order.ShippingTaxAmount = decimal.RequireFromString("0.5")

	store := newFakeOrderStore(order)
	store.items[7] = testOrderItems()
	store.addresses[7] = testOrderAddresses()

	client := &fakeStoreClient{}
	svc, m := newTestSyncService(store, client, newFakeSettings(), nil)

	if err := svc.SyncOrder(context.Background(), order, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(client.requests))
	}

	request := client.requests[0]
	if request.Text(provider.FieldOrderUID) != "100000007" || request.Text("order_name") != "100000007" {
		t.Fatalf("unexpected order identity: %s / %s", request.Text(provider.FieldOrderUID), request.Text("order_name"))
	}
	if request.Text(provider.FieldOrderAmount) != "49.9" || request.Text(provider.FieldOrderCurrency) != "EUR" {
		t.Fatalf("unexpected amount: %s %s", request.Text(provider.FieldOrderAmount), request.Text(provider.FieldOrderCurrency))
	}
	if request.Text(provider.FieldStatus) != "PAYMENT:CANCELED" {
		t.Fatalf("unexpected status: %s", request.Text(provider.FieldStatus))
	}
	if request.Text("request_time") != "1700000000" || request.Text("merchant_site_uid") != testMerchantSiteUID {
		t.Fatalf("unexpected request metadata: %s", mustEncodeObject(t, request))
	}
	if request.Text("shipping_method") != "12" {
		t.Fatalf("unexpected shipping method: %s", request.Text("shipping_method"))
	}

	siteData, ok := request.Object("order_sitedata")
	if !ok {
		t.Fatal("expected order_sitedata")
	}
	if got := mustEncodeObject(t, siteData); got != `{"id":7,"customer_id":42,"payment_method_id":"holestpay","shipping_method_id":"holestpay_12"}` {
		t.Fatalf("unexpected site data: %s", got)
	}

	wantItems := `[` +
		`{"posuid":501,"type":"product","name":"T-Shirt","sku":"TS-1","qty":2,"price":19.95,"subtotal":39.9,"tax_amount":0,"virtual":false},` +
		`{"posuid":"holestpay_12","type":"shipping","name":"Courier","sku":"holestpay_12","qty":1,"price":4.5,"subtotal":4.5,"tax_amount":0.5,"virtual":true},` +
		`{"posuid":3,"type":"fee","name":"Packaging","sku":"Packaging","qty":1,"price":5,"subtotal":5,"tax_amount":1,"virtual":true}` +
		`]`
	if got := mustEncodeField(t, request, "order_items"); got != wantItems {
		t.Fatalf("unexpected order items: %s", got)
	}

	wantBilling := `{"email":"ana@example.com","first_name":"Ana","last_name":"Ilic","phone":"+381601234567","is_company":0,"company":"",` +
		`"company_tax_id":"","company_reg_id":"","address":"Knez Mihailova 1 Stan 4","address2":"","city":"Beograd","country":"RS",` +
		`"state":"","postcode":"11000","lang":"sr_RS"}`
	if got := mustEncodeField(t, request, "order_billing"); got != wantBilling {
		t.Fatalf("unexpected billing: %s", got)
	}

	wantShipping := `{"shippable":true,"is_cod":false,"first_name":"Ana","last_name":"Ilic","phone":"+381601234567","company":"Holest d.o.o.",` +
		`"address":"Bulevar 2","address2":"","city":"Beograd","country":"RS","state":"","postcode":"11000"}`
	if got := mustEncodeField(t, request, "order_shipping"); got != wantShipping {
		t.Fatalf("unexpected shipping: %s", got)
	}

	creds := provider.Credentials{MerchantSiteUID: testMerchantSiteUID, SecretKey: testSecretKey}
	if !provider.Verify(provider.FieldsFromObject(request), request.Text(provider.FieldVerificationHash), creds) {
		t.Fatal("expected request to carry a valid verification hash")
	}
	if got := testutil.ToFloat64(m.OrderSyncs.WithLabelValues(syncResultOK)); got != 1 {
		t.Fatalf("expected one ok sync, got %v", got)
	}
}

func TestSyncOrderPrefersHolestPayUIDAndOmitsStatus(t *testing.T) {
	order := testOrder(8, "100000008")
	order.HolestPayUID = strPtr("hp-uid-8")

	client := &fakeStoreClient{}
	svc, _ := newTestSyncService(newFakeOrderStore(order), client, newFakeSettings(), nil)

	if err := svc.SyncOrder(context.Background(), order, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	request := client.requests[0]
	if request.Text(provider.FieldOrderUID) != "hp-uid-8" {
		t.Fatalf("expected holestpay uid, got %s", request.Text(provider.FieldOrderUID))
	}
	if request.Has(provider.FieldStatus) || request.Has("shipping_method") {
		t.Fatalf("unexpected optional fields: %s", mustEncodeObject(t, request))
	}
	siteData, _ := request.Object("order_sitedata")
	if value, _ := siteData.Get("customer_id"); !value.IsNull() {
		t.Fatal("expected guest customer id to be null")
	}
}

func TestSyncOrderCountsRejections(t *testing.T) {
	order := testOrder(9, "100000009")
	client := &fakeStoreClient{err: fmt.Errorf("%w: status=500", provider.ErrSyncRejected)}
	svc, m := newTestSyncService(newFakeOrderStore(order), client, newFakeSettings(), nil)

	if err := svc.SyncOrder(context.Background(), order, false); !errors.Is(err, provider.ErrSyncRejected) {
		t.Fatalf("expected ErrSyncRejected, got %v", err)
	}
	if got := testutil.ToFloat64(m.OrderSyncs.WithLabelValues(syncResultRejected)); got != 1 {
		t.Fatalf("expected one rejected sync, got %v", got)
	}

	client.err = errors.New("connection refused")
	if err := svc.SyncOrder(context.Background(), order, false); err == nil {
		t.Fatal("expected transport error")
	}
	if got := testutil.ToFloat64(m.OrderSyncs.WithLabelValues(syncResultFailed)); got != 1 {
		t.Fatalf("expected one failed sync, got %v", got)
	}
}

func TestSyncOrderCashOnDeliveryWithoutShippingCharge(t *testing.T) {
	order := testOrder(10, "100000010")
	order.PaymentMethod = strPtr(entity.PaymentMethodCashOnDelivery)

	store := newFakeOrderStore(order)
	store.addresses[10] = testOrderAddresses()[1:]

	client := &fakeStoreClient{}
	svc, _ := newTestSyncService(store, client, newFakeSettings(), nil)

	if err := svc.SyncOrder(context.Background(), order, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	request := client.requests[0]
	if got := mustEncodeField(t, request, "order_items"); got != `[]` {
		t.Fatalf("expected no item lines, got %s", got)
	}
	if _, ok := request.Get("order_billing"); ok {
		t.Fatal("order_billing must be omitted without a billing address")
	}
	shipping, ok := request.Object("order_shipping")
	if !ok {
		t.Fatal("expected order_shipping")
	}
	if got := mustEncodeField(t, shipping, "is_cod"); got != "true" {
		t.Fatalf("expected cash on delivery flag, got %s", mustEncodeObject(t, shipping))
	}
}

func TestSyncOrderFailsWhenItemsCannotBeLoaded(t *testing.T) {
	order := testOrder(11, "100000011")
	store := newFakeOrderStore(order)
	store.itemsErr = errors.New("db down")

	client := &fakeStoreClient{}
	svc, m := newTestSyncService(store, client, newFakeSettings(), nil)

	if err := svc.SyncOrder(context.Background(), order, false); err == nil {
		t.Fatal("expected item lookup error")
	}
	if len(client.requests) != 0 {
		t.Fatal("no request may be sent without item lines")
	}
	if got := testutil.ToFloat64(m.OrderSyncs.WithLabelValues(syncResultFailed)); got != 1 {
		t.Fatalf("expected one failed sync, got %v", got)
	}
}

func TestSyncOrderRequiresMerchantSiteUID(t *testing.T) {
	cfg := newFakeSettings()
	cfg.merchantSiteUID = ""
	client := &fakeStoreClient{}
	svc, _ := newTestSyncService(newFakeOrderStore(), client, cfg, nil)

	if err := svc.SyncOrder(context.Background(), testOrder(1, "100000001"), false); !errors.Is(err, provider.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if len(client.requests) != 0 {
		t.Fatal("no request must be sent without a merchant site uid")
	}
}

func TestSyncMerchantChange(t *testing.T) {
	synced := testOrder(1, "100000001")
	synced.HolestPayUID = strPtr("hp-1")
	synced.Status = entity.OrderStatusProcessing
	skipped := testOrder(2, "100000002")

	client := &fakeStoreClient{}
	svc, m := newTestSyncService(newFakeOrderStore(synced, skipped), client, newFakeSettings(), nil)

	ok, err := svc.SyncMerchantChange(context.Background(), "100000001")
	if err != nil || !ok {
		t.Fatalf("expected sync, got %v, %v", ok, err)
	}
	if client.requests[0].Text(provider.FieldStatus) != "PAYMENT:PAID" {
		t.Fatalf("expected status to be sent, got %s", client.requests[0].Text(provider.FieldStatus))
	}

	ok, err = svc.SyncMerchantChange(context.Background(), "100000002")
	if err != nil || ok {
		t.Fatalf("expected skip, got %v, %v", ok, err)
	}
	if got := testutil.ToFloat64(m.OrderSyncs.WithLabelValues(syncResultSkipped)); got != 1 {
		t.Fatalf("expected one skipped sync, got %v", got)
	}

	if _, err := svc.SyncMerchantChange(context.Background(), "404"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.SyncMerchantChange(context.Background(), " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func testOrderItems() []*entity.OrderItem {
	return []*entity.OrderItem{
		{
			ID:          1,
			ProductID:   uint64Ptr(501),
			ProductType: "configurable",
			Name:        "T-Shirt",
			SKU:         "TS-1",
			QtyOrdered:  decimal.RequireFromString("2.0000"),
			Price:       decimal.RequireFromString("19.9500"),
			RowTotal:    decimal.RequireFromString("39.9000"),
			TaxAmount:   decimal.Zero,
		},
		{
			ID:           2,
			ParentItemID: uint64Ptr(1),
			ProductID:    uint64Ptr(502),
			ProductType:  "simple",
			Name:         "T-Shirt M",
			SKU:          "TS-1-M",
			QtyOrdered:   decimal.RequireFromString("2.0000"),
		},
		{
			ID:          3,
			ProductType: entity.OrderItemTypeFee,
			Name:        "Packaging",
			QtyOrdered:  decimal.RequireFromString("1"),
			Price:       decimal.RequireFromString("5.00"),
			RowTotal:    decimal.RequireFromString("5.00"),
			TaxAmount:   decimal.RequireFromString("1.00"),
		},
	}
}

func testOrderAddresses() []*entity.OrderAddress {
	return []*entity.OrderAddress{
		{
			AddressType: entity.AddressTypeBilling,
			Email:       "ana@example.com",
			FirstName:   "Ana",
			LastName:    "Ilic",
			Telephone:   "+381601234567",
			Street:      "Knez Mihailova 1\nStan 4",
			City:        "Beograd",
			CountryID:   "RS",
			Postcode:    "11000",
		},
		{
			AddressType: entity.AddressTypeShipping,
			FirstName:   "Ana",
			LastName:    "Ilic",
			Telephone:   "+381601234567",
			Company:     "Holest d.o.o.",
			Street:      "Bulevar 2",
			City:        "Beograd",
			CountryID:   "RS",
			Postcode:    "11000",
		},
	}
}

func mustEncodeField(t *testing.T, obj *payload.Object, key string) string {
	t.Helper()
	value, ok := obj.Get(key)
	if !ok {
		t.Fatalf("missing %s", key)
	}
	out, err := value.MarshalJSON()
	if err != nil {
		t.Fatalf("encode %s failed: %v", key, err)
	}
	return string(out)
}

func mustEncodeObject(t *testing.T, obj *payload.Object) string {
	t.Helper()
	out, err := obj.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return out
}
