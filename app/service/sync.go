package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/metrics"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
)

const (
	syncResultOK       = "ok"
	syncResultFailed   = "failed"
	syncResultRejected = "rejected"
	syncResultSkipped  = "skipped"
)

type orderStore interface {
	FindByID(ctx context.Context, id uint64) (*entity.Order, error)
	FindByIncrementID(ctx context.Context, incrementID string) (*entity.Order, error)
	FindByHolestPayUID(ctx context.Context, uid string) (*entity.Order, error)
	FindByQuoteID(ctx context.Context, quoteID uint64) (*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
	SyncGrid(ctx context.Context, order *entity.Order) error
}

type syncOrderStore interface {
	FindByIncrementID(ctx context.Context, incrementID string) (*entity.Order, error)
	FindItems(ctx context.Context, orderID uint64) ([]*entity.OrderItem, error)
	FindAddresses(ctx context.Context, orderID uint64) ([]*entity.OrderAddress, error)
}

type orderStoreClient interface {
	StoreOrder(ctx context.Context, requestData *payload.Object) (*provider.StoreOrderResult, error)
}

type requestSigner interface {
	NewRand() string
	SignObject(request *payload.Object) (*payload.Object, error)
}

type fiscalChecker interface {
	FiscalMethodsEnabled(ctx context.Context) bool
}

// OrderSyncService pushes merchant side order state to HolestPay.
type OrderSyncService struct {
	orders  syncOrderStore
	client  orderStoreClient
	signer  requestSigner
	fiscal  fiscalChecker
	cfg     settings
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewOrderSyncService(
	orders syncOrderStore,
	client orderStoreClient,
	signer requestSigner,
	fiscal fiscalChecker,
	cfg settings,
	m *metrics.Metrics,
) *OrderSyncService {
	return &OrderSyncService{
		orders:  orders,
		client:  client,
		signer:  signer,
		fiscal:  fiscal,
		cfg:     cfg,
		metrics: m,
		logger:  factory.NewModuleLogger("order-sync"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ShouldSync never syncs an order that is being written from a provider
// message, so a provider update cannot bounce straight back to HolestPay.
func (s *OrderSyncService) ShouldSync(ctx context.Context, order *entity.Order, isStatusChange bool) bool {
	if order.IsProcessing() {
		return false
	}
	if order.HasHolestPayUID() {
		return true
	}
	if isStatusChange && s.cfg.IsManageAllOrders() {
		return true
	}
	return s.fiscal != nil && s.fiscal.FiscalMethodsEnabled(ctx)
}

// SyncOrder sends the order to /clientpay/store. withStatus adds the mapped
// provider status of the current merchant status.
func (s *OrderSyncService) SyncOrder(ctx context.Context, order *entity.Order, withStatus bool) error {
	logger := s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"increment_id": order.IncrementID,
	})

	request, err := s.buildOrderRequest(ctx, order, withStatus)
	if err != nil {
		s.metrics.ObserveOrderSync(syncResultFailed)
		logger.WithError(err).Warn("order sync request not built")
		return err
	}

	signed, err := s.signer.SignObject(request)
	if err != nil {
		s.metrics.ObserveOrderSync(syncResultFailed)
		return err
	}

	result, err := s.client.StoreOrder(ctx, signed)
	if err != nil {
		if errors.Is(err, provider.ErrSyncRejected) {
			s.metrics.ObserveOrderSync(syncResultRejected)
		} else {
			s.metrics.ObserveOrderSync(syncResultFailed)
		}
		logger.WithError(err).Warn("order sync failed")
		return err
	}

	s.metrics.ObserveOrderSync(syncResultOK)
	logger.WithFields(logrus.Fields{
		"hpay_status":  result.Status,
		"request_time": result.RequestTime,
	}).Info("order synced to holestpay")
	return nil
}

// SyncMerchantChange is called after the store changed an order's status.
// It reports false when the order does not qualify for syncing.
func (s *OrderSyncService) SyncMerchantChange(ctx context.Context, incrementID string) (bool, error) {
	incrementID = strings.TrimSpace(incrementID)
	if incrementID == "" {
		return false, ErrInvalidRequest
	}

	order, err := s.orders.FindByIncrementID(ctx, incrementID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, ErrOrderNotFound
	}

	if !s.ShouldSync(ctx, order, true) {
		s.metrics.ObserveOrderSync(syncResultSkipped)
		return false, nil
	}
	if err := s.SyncOrder(ctx, order, true); err != nil {
		return false, err
	}
	return true, nil
}

func (s *OrderSyncService) buildOrderRequest(ctx context.Context, order *entity.Order, withStatus bool) (*payload.Object, error) {
	merchantSiteUID := s.cfg.GetMerchantSiteUID()
	if merchantSiteUID == "" {
		return nil, provider.ErrConfiguration
	}

	request := payload.NewObject()
	request.SetString(provider.FieldOrderUID, order.ProviderUID())
	request.SetString("order_name", order.IncrementID)
	request.Set(provider.FieldOrderAmount, decimalValue(order.GrandTotal))
	request.SetString(provider.FieldOrderCurrency, order.CurrencyCode)
	request.Set("request_time", payload.Int(s.now().Unix()))
	request.SetString(provider.FieldTransactionUID, "")
	request.SetString(provider.FieldVaultTokenUID, "")
	request.SetString(provider.FieldSubscriptionUID, "")
	request.SetString(provider.FieldRand, s.signer.NewRand())
	request.SetString("merchant_site_uid", merchantSiteUID)

	if withStatus {
		if hpayStatus, ok := MapMerchantStatusToHPay(order.Status); ok {
			request.SetString(provider.FieldStatus, hpayStatus)
		}
	}

	siteData := payload.NewObject()
	siteData.Set("id", uintValue(order.ID))
	if order.CustomerID != nil {
		siteData.Set("customer_id", uintValue(*order.CustomerID))
	} else {
		siteData.Set("customer_id", payload.Null())
	}
	siteData.SetString("payment_method_id", derefString(order.PaymentMethod))
	siteData.SetString("shipping_method_id", derefString(order.ShippingMethod))
	request.Set("order_sitedata", payload.ObjectValue(siteData))

	if hpayMethodID, ok := hpayShippingMethodID(order.ShippingMethod); ok {
		request.Set("shipping_method", payload.Int(hpayMethodID))
	}

	items, err := s.orders.FindItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	addresses, err := s.orders.FindAddresses(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("loading order addresses: %w", err)
	}

	request.Set("order_items", payload.Array(orderItemValues(order, items)...))
	if billing := entity.FindAddress(addresses, entity.AddressTypeBilling); billing != nil {
		request.Set("order_billing", payload.ObjectValue(billingObject(billing, s.storeLocale())))
	}
	if shipping := entity.FindAddress(addresses, entity.AddressTypeShipping); shipping != nil {
		request.Set("order_shipping", payload.ObjectValue(shippingObject(order, shipping)))
	}

	return request, nil
}

func (s *OrderSyncService) storeLocale() string {
	if locale := strings.TrimSpace(s.cfg.GetStoreLocale()); locale != "" {
		return locale
	}
	return "en_US"
}

// orderItemValues lists top level products, then the shipping line, then fee
// lines. Child items of configurable products are left out.
func orderItemValues(order *entity.Order, items []*entity.OrderItem) []payload.Value {
	values := make([]payload.Value, 0, len(items)+1)

	for _, item := range items {
		if item.HasParent() || item.IsFee() {
			continue
		}
		line := payload.NewObject()
		if item.ProductID != nil {
			line.Set("posuid", uintValue(*item.ProductID))
		} else {
			line.Set("posuid", payload.Null())
		}
		line.SetString("type", "product")
		line.SetString("name", item.Name)
		line.SetString("sku", item.SKU)
		line.Set("qty", payload.Int(item.QtyOrdered.IntPart()))
		line.Set("price", decimalValue(item.Price))
		line.Set("subtotal", decimalValue(item.RowTotal))
		line.Set("tax_amount", decimalValue(item.TaxAmount))
		line.Set("virtual", payload.Bool(item.IsVirtual))
		values = append(values, payload.ObjectValue(line))
	}

	if order.ShippingAmount.IsPositive() {
		code := derefString(order.ShippingMethod)
		if code == "" {
			code = "shipping"
		}
		name := derefString(order.ShippingDescription)
		if name == "" {
			name = "Shipping"
		}
		line := payload.NewObject()
		line.SetString("posuid", code)
		line.SetString("type", "shipping")
		line.SetString("name", name)
		line.SetString("sku", code)
		line.Set("qty", payload.Int(1))
		line.Set("price", decimalValue(order.ShippingAmount))
		line.Set("subtotal", decimalValue(order.ShippingAmount))
		line.Set("tax_amount", decimalValue(order.ShippingTaxAmount))
		line.Set("virtual", payload.Bool(true))
		values = append(values, payload.ObjectValue(line))
	}

	for _, item := range items {
		if !item.IsFee() {
			continue
		}
		line := payload.NewObject()
		line.Set("posuid", uintValue(item.ID))
		line.SetString("type", entity.OrderItemTypeFee)
		line.SetString("name", item.Name)
		line.SetString("sku", item.Name)
		line.Set("qty", payload.Int(1))
		line.Set("price", decimalValue(item.Price))
		line.Set("subtotal", decimalValue(item.RowTotal))
		line.Set("tax_amount", decimalValue(item.TaxAmount))
		line.Set("virtual", payload.Bool(true))
		values = append(values, payload.ObjectValue(line))
	}

	return values
}

func billingObject(address *entity.OrderAddress, locale string) *payload.Object {
	isCompany := int64(0)
	if strings.TrimSpace(address.Company) != "" {
		isCompany = 1
	}

	billing := payload.NewObject()
	billing.SetString("email", address.Email)
	billing.SetString("first_name", address.FirstName)
	billing.SetString("last_name", address.LastName)
	billing.SetString("phone", address.Telephone)
	billing.Set("is_company", payload.Int(isCompany))
	billing.SetString("company", address.Company)
	billing.SetString("company_tax_id", "")
	billing.SetString("company_reg_id", "")
	billing.SetString("address", address.StreetLine())
	billing.SetString("address2", "")
	billing.SetString("city", address.City)
	billing.SetString("country", address.CountryID)
	billing.SetString("state", address.Region)
	billing.SetString("postcode", address.Postcode)
	billing.SetString("lang", locale)
	return billing
}

func shippingObject(order *entity.Order, address *entity.OrderAddress) *payload.Object {
	shipping := payload.NewObject()
	shipping.Set("shippable", payload.Bool(true))
	shipping.Set("is_cod", payload.Bool(derefString(order.PaymentMethod) == entity.PaymentMethodCashOnDelivery))
	shipping.SetString("first_name", address.FirstName)
	shipping.SetString("last_name", address.LastName)
	shipping.SetString("phone", address.Telephone)
	shipping.SetString("company", address.Company)
	shipping.SetString("address", address.StreetLine())
	shipping.SetString("address2", "")
	shipping.SetString("city", address.City)
	shipping.SetString("country", address.CountryID)
	shipping.SetString("state", address.Region)
	shipping.SetString("postcode", address.Postcode)
	return shipping
}

func decimalValue(d decimal.Decimal) payload.Value {
	return payload.Number(json.Number(d.String()))
}

func uintValue(n uint64) payload.Value {
	return payload.Number(json.Number(strconv.FormatUint(n, 10)))
}

// hpayShippingMethodID extracts the id from a holestpay_<id> method code.
func hpayShippingMethodID(code *string) (int64, bool) {
	if code == nil || !strings.HasPrefix(*code, entity.ShippingMethodCodePrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(*code, entity.ShippingMethodCodePrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
