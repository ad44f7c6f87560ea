package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
)

const (
	carrierConfigPrefix = "carriers/holestpay/"
	carrierTitle        = "HolestPay Shipping"
	carrierSortOrder    = "30"
	carrierErrorMessage = "This shipping method is not available. To use this shipping method, please contact us."
)

// Keys of a shipping method entry inside the POS document.
const (
	methodKeyHPayID              = "HPaySiteMethodId"
	methodKeyUID                 = "Uid"
	methodKeyName                = "Name"
	methodKeyDescription         = "Description"
	methodKeyEnabled             = "Enabled"
	methodKeyPriceTable          = "Price Table"
	methodKeyPriceMultiplication = "Price Multiplication"
	methodKeyAfterMaxWeightPerKg = "After Max Weight Price Per Kg"
	methodKeyFreeAbove           = "Free Above Order Amount"
	methodKeyAdditionalCost      = "Additional cost"
	methodKeyCODCost             = "COD cost"
	methodKeyShippingCurrency    = "ShippingCurrency"
	methodKeySystemTitle         = "SystemTitle"

	priceRowMaxWeight   = "MaxWeight"
	priceRowPrice       = "Price"
	tierMinCartTotal    = "MinCartTotal"
	tierMultiplication  = "Multiplication"
	defaultMethodAmount = "0.00"
)

type shippingMethodRepository interface {
	ReplaceAll(ctx context.Context, methods []*entity.ShippingMethod) error
	ListEnabled(ctx context.Context) ([]*entity.ShippingMethod, error)
	FindByHPayID(ctx context.Context, hpayID int64) (*entity.ShippingMethod, error)
}

type storeConfigRepository interface {
	SetDefault(ctx context.Context, path, value string) error
}

type posConfigReader interface {
	CurrentPosConfig(ctx context.Context) (*payload.Object, error)
}

type ShippingQuote struct {
	Method *entity.ShippingMethod
	Cost   decimal.Decimal
}

// ShippingMethodService keeps the local copy of HolestPay shipping methods and
// prices them for the store's carrier.
type ShippingMethodService struct {
	repo        shippingMethodRepository
	storeConfig storeConfigRepository
	posConfig   posConfigReader
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewShippingMethodService(repo shippingMethodRepository, storeConfig storeConfigRepository) *ShippingMethodService {
	return &ShippingMethodService{
		repo:        repo,
		storeConfig: storeConfig,
		logger:      factory.NewModuleLogger("shipping"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetPosConfigReader wires the stored POS document used by SyncFromStoredConfig.
func (s *ShippingMethodService) SetPosConfigReader(reader posConfigReader) {
	s.posConfig = reader
}

// SyncShippingMethods replaces the stored methods with the entries that carry
// both a HolestPay id and a uid, and toggles the store carrier accordingly.
func (s *ShippingMethodService) SyncShippingMethods(ctx context.Context, methods []payload.Value) (int, error) {
	now := s.now()
	items := make([]*entity.ShippingMethod, 0, len(methods))
	hasEnabled := false

	for _, raw := range methods {
		obj, ok := raw.AsObject()
		if !ok {
			continue
		}
		if enabled, ok := obj.Get(methodKeyEnabled); ok && enabled.Truthy() {
			hasEnabled = true
		}

		method, err := shippingMethodFromPayload(obj, now)
		if err != nil {
			s.logger.WithError(err).WithField("uid", obj.Text(methodKeyUID)).Warn("skipping malformed shipping method")
			continue
		}
		if method != nil {
			items = append(items, method)
		}
	}

	if err := s.updateCarrierConfig(ctx, hasEnabled); err != nil {
		return 0, err
	}
	if err := s.repo.ReplaceAll(ctx, items); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"received": len(methods),
		"stored":   len(items),
	}).Info("shipping methods synced")
	return len(items), nil
}

func (s *ShippingMethodService) updateCarrierConfig(ctx context.Context, active bool) error {
	activeValue := "0"
	if active {
		activeValue = "1"
	}

	values := []struct{ key, value string }{
		{"active", activeValue},
		{"title", carrierTitle},
		{"sort_order", carrierSortOrder},
		{"sallowspecific", "0"},
		{"showmethod", "1"},
		{"specificerrmsg", carrierErrorMessage},
	}
	for _, item := range values {
		if err := s.storeConfig.SetDefault(ctx, carrierConfigPrefix+item.key, item.value); err != nil {
			return err
		}
	}
	return nil
}

// SyncFromStoredConfig re-applies the shipping section of the stored POS document.
func (s *ShippingMethodService) SyncFromStoredConfig(ctx context.Context) (int, error) {
	if s.posConfig == nil {
		return 0, fmt.Errorf("%w: pos configuration is not available", ErrInvalidRequest)
	}
	pos, err := s.posConfig.CurrentPosConfig(ctx)
	if err != nil {
		return 0, err
	}
	methods, ok := pos.Array(posFieldShipping)
	if !ok {
		return 0, fmt.Errorf("%w: stored pos configuration has no shipping methods", ErrInvalidRequest)
	}
	return s.SyncShippingMethods(ctx, methods)
}

func (s *ShippingMethodService) ListAvailableMethods(ctx context.Context) ([]*entity.ShippingMethod, error) {
	return s.repo.ListEnabled(ctx)
}

func (s *ShippingMethodService) QuoteShipping(ctx context.Context, hpayID int64, weightGrams, cartAmount float64, isCOD bool) (*ShippingQuote, error) {
	method, err := s.repo.FindByHPayID(ctx, hpayID)
	if err != nil {
		return nil, err
	}
	if method == nil || !method.Enabled {
		return nil, ErrShippingMethodNotFound
	}

	cost, err := CalculateShippingCost(method, weightGrams, cartAmount, isCOD)
	if err != nil {
		return nil, err
	}
	return &ShippingQuote{Method: method, Cost: cost}, nil
}

// CalculateShippingCost prices a parcel of weightGrams for a cart worth
// cartAmount. The order of adjustments is free threshold, price table,
// COD cost, additional cost, then cart tier multiplication.
func CalculateShippingCost(method *entity.ShippingMethod, weightGrams, cartAmount float64, isCOD bool) (decimal.Decimal, error) {
	cart := decimal.NewFromFloat(cartAmount)
	if method.FreeAboveOrderAmount != nil && method.FreeAboveOrderAmount.IsPositive() && cart.GreaterThanOrEqual(*method.FreeAboveOrderAmount) {
		return decimal.Zero, nil
	}

	rows, err := parsePriceTable(method.PriceTable)
	if err != nil {
		return decimal.Zero, err
	}

	cost := decimal.Zero
	if len(rows) > 0 {
		found := false
		maxPrice := decimal.Zero
		maxWeight := 0.0
		for _, row := range rows {
			if weightGrams <= row.MaxWeight {
				cost = decimal.NewFromFloat(row.Price)
				found = true
				break
			}
			maxPrice = decimal.NewFromFloat(row.Price)
			maxWeight = row.MaxWeight
		}
		if !found {
			extraKg := decimal.NewFromFloat(weightGrams - maxWeight).Div(decimal.NewFromInt(1000))
			cost = maxPrice.Add(extraKg.Mul(method.AfterMaxWeightPricePerKg))
		}
	}

	if isCOD {
		cost = applyCostAdjustment(cost, method.CODCost)
	}
	cost = applyCostAdjustment(cost, method.AdditionalCost)

	if method.PriceMultiplication != nil {
		tiers, err := parseMultiplicationTiers(*method.PriceMultiplication)
		if err != nil {
			return decimal.Zero, err
		}
		if factor := multiplicationFor(tiers, cartAmount); factor != 1 {
			cost = cost.Mul(decimal.NewFromFloat(factor))
		}
	}

	return cost.Round(2), nil
}

// applyCostAdjustment adds a flat amount, or scales cost when adjustment ends
// in a percent sign.
func applyCostAdjustment(cost decimal.Decimal, adjustment string) decimal.Decimal {
	adjustment = strings.TrimSpace(adjustment)
	if adjustment == "" {
		return cost
	}

	if strings.Contains(adjustment, "%") {
		pct, err := decimal.NewFromString(strings.NewReplacer("%", "", " ", "").Replace(adjustment))
		if err != nil {
			return cost
		}
		return cost.Mul(decimal.NewFromInt(1).Add(pct.Div(decimal.NewFromInt(100))))
	}

	flat, err := decimal.NewFromString(adjustment)
	if err != nil {
		return cost
	}
	return cost.Add(flat)
}

func parsePriceTable(raw string) ([]entity.PriceTableRow, error) {
	items, err := parseArrayColumn(raw)
	if err != nil {
		return nil, fmt.Errorf("price table: %w", err)
	}

	rows := make([]entity.PriceTableRow, 0, len(items))
	for _, item := range items {
		obj, ok := item.AsObject()
		if !ok {
			continue
		}
		maxWeight, _ := numberAt(obj, priceRowMaxWeight)
		price, _ := numberAt(obj, priceRowPrice)
		rows = append(rows, entity.PriceTableRow{MaxWeight: maxWeight, Price: price})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].MaxWeight < rows[j].MaxWeight })
	return rows, nil
}

func parseMultiplicationTiers(raw string) ([]entity.PriceMultiplicationTier, error) {
	items, err := parseArrayColumn(raw)
	if err != nil {
		return nil, fmt.Errorf("price multiplication: %w", err)
	}

	tiers := make([]entity.PriceMultiplicationTier, 0, len(items))
	for _, item := range items {
		obj, ok := item.AsObject()
		if !ok {
			continue
		}
		minTotal, ok := numberAt(obj, tierMinCartTotal)
		if !ok || minTotal == 0 {
			continue
		}
		factor, ok := numberAt(obj, tierMultiplication)
		if !ok || factor == 0 {
			factor = 1
		}
		tiers = append(tiers, entity.PriceMultiplicationTier{MinCartTotal: minTotal, Multiplication: factor})
	}
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinCartTotal < tiers[j].MinCartTotal })
	return tiers, nil
}

// multiplicationFor returns the factor of the highest tier the cart reaches.
func multiplicationFor(tiers []entity.PriceMultiplicationTier, cartAmount float64) float64 {
	factor := 1.0
	for _, tier := range tiers {
		if cartAmount >= tier.MinCartTotal {
			factor = tier.Multiplication
		}
	}
	return factor
}

func parseArrayColumn(raw string) ([]payload.Value, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := payload.Parse([]byte(raw))
	if err != nil {
		return nil, err
	}
	if value.IsNull() {
		return nil, nil
	}
	if obj, ok := value.AsObject(); ok {
		// Arrays serialized with numeric keys arrive as objects.
		items := make([]payload.Value, 0, obj.Len())
		for _, key := range obj.Keys() {
			item, _ := obj.Get(key)
			items = append(items, item)
		}
		return items, nil
	}
	items, ok := value.AsArray()
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", value.Kind())
	}
	return items, nil
}

func numberAt(obj *payload.Object, key string) (float64, bool) {
	value, ok := obj.Get(key)
	if !ok {
		return 0, false
	}
	return value.Float()
}

func shippingMethodFromPayload(obj *payload.Object, now time.Time) (*entity.ShippingMethod, error) {
	if !obj.Has(methodKeyHPayID) || !obj.Has(methodKeyUID) {
		return nil, nil
	}

	hpayID, err := strconv.ParseInt(strings.TrimSpace(obj.Text(methodKeyHPayID)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", methodKeyHPayID, err)
	}
	uid := obj.Text(methodKeyUID)

	priceTable := "[]"
	if value, ok := obj.Get(methodKeyPriceTable); ok && !value.IsNull() {
		encoded, err := value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		priceTable = string(encoded)
	}

	var priceMultiplication *string
	if value, ok := obj.Get(methodKeyPriceMultiplication); ok && !value.IsNull() {
		encoded, err := value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		raw := string(encoded)
		priceMultiplication = &raw
	}

	afterMax, err := decimal.NewFromString(textOr(obj, methodKeyAfterMaxWeightPerKg, defaultMethodAmount))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", methodKeyAfterMaxWeightPerKg, err)
	}

	var freeAbove *decimal.Decimal
	if raw := strings.TrimSpace(obj.Text(methodKeyFreeAbove)); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", methodKeyFreeAbove, err)
		}
		freeAbove = &amount
	}

	enabled := false
	if value, ok := obj.Get(methodKeyEnabled); ok {
		enabled = value.Truthy()
	}

	return &entity.ShippingMethod{
		HPayID:                   hpayID,
		UID:                      uid,
		Name:                     textOr(obj, methodKeyName, uid),
		Description:              obj.Text(methodKeyDescription),
		Enabled:                  enabled,
		PriceTable:               priceTable,
		PriceMultiplication:      priceMultiplication,
		AfterMaxWeightPricePerKg: afterMax,
		FreeAboveOrderAmount:     freeAbove,
		AdditionalCost:           textOr(obj, methodKeyAdditionalCost, defaultMethodAmount),
		CODCost:                  textOr(obj, methodKeyCODCost, defaultMethodAmount),
		ShippingCurrency:         textOr(obj, methodKeyShippingCurrency, entity.DefaultShippingCurrency),
		SystemTitle:              textOr(obj, methodKeySystemTitle, uid),
		CreatedAt:                now,
		UpdatedAt:                now,
	}, nil
}

func textOr(obj *payload.Object, key, fallback string) string {
	if value := strings.TrimSpace(obj.Text(key)); value != "" {
		return value
	}
	return fallback
}
