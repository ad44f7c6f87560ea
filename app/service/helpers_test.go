package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
)

const (
	testMerchantSiteUID = "site-uid-1"
	testSecretKey       = "secret-key-1"
)

type fakeSettings struct {
	merchantSiteUID string
	secretKey       string
	environment     string
	manageAll       bool
	newOrderStatus  string
	storeLocale     string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		merchantSiteUID: testMerchantSiteUID,
		secretKey:       testSecretKey,
		environment:     "sandbox",
		newOrderStatus:  entity.OrderStatusPendingPayment,
		storeLocale:     "sr_RS",
	}
}

func (s *fakeSettings) GetMerchantSiteUID() string { return s.merchantSiteUID }
func (s *fakeSettings) GetSecretKey() string       { return s.secretKey }
func (s *fakeSettings) GetEnvironment() string     { return s.environment }
func (s *fakeSettings) IsDebug() bool              { return false }
func (s *fakeSettings) IsManageAllOrders() bool    { return s.manageAll }
func (s *fakeSettings) GetNewOrderStatus() string  { return s.newOrderStatus }
func (s *fakeSettings) GetStoreLocale() string     { return s.storeLocale }

type fakeOrderStore struct {
	mu     sync.Mutex
	orders    map[uint64]*entity.Order
	items     map[uint64][]*entity.OrderItem
	addresses map[uint64][]*entity.OrderAddress

	updateErr  error
	itemsErr   error
	onUpdate   func()
	updates    int
	gridSynced int
}

func newFakeOrderStore(orders ...*entity.Order) *fakeOrderStore {
	store := &fakeOrderStore{
		orders:    map[uint64]*entity.Order{},
		items:     map[uint64][]*entity.OrderItem{},
		addresses: map[uint64][]*entity.OrderAddress{},
	}
	for _, order := range orders {
		copyOrder := *order
		store.orders[order.ID] = &copyOrder
	}
	return store
}

func (s *fakeOrderStore) find(match func(*entity.Order) bool) *entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *entity.Order
	for _, order := range s.orders {
		if match(order) && (found == nil || order.ID > found.ID) {
			found = order
		}
	}
	if found == nil {
		return nil
	}
	copyOrder := *found
	return &copyOrder
}

func (s *fakeOrderStore) FindByID(_ context.Context, id uint64) (*entity.Order, error) {
	return s.find(func(o *entity.Order) bool { return o.ID == id }), nil
}

func (s *fakeOrderStore) FindByIncrementID(_ context.Context, incrementID string) (*entity.Order, error) {
	return s.find(func(o *entity.Order) bool { return o.IncrementID == incrementID }), nil
}

func (s *fakeOrderStore) FindByHolestPayUID(_ context.Context, uid string) (*entity.Order, error) {
	return s.find(func(o *entity.Order) bool { return o.HolestPayUID != nil && *o.HolestPayUID == uid }), nil
}

func (s *fakeOrderStore) FindByQuoteID(_ context.Context, quoteID uint64) (*entity.Order, error) {
	return s.find(func(o *entity.Order) bool { return o.QuoteID != nil && *o.QuoteID == quoteID }), nil
}

func (s *fakeOrderStore) Update(_ context.Context, order *entity.Order) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.onUpdate != nil {
		s.onUpdate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copyOrder := *order
	s.orders[order.ID] = &copyOrder
	s.updates++
	return nil
}

func (s *fakeOrderStore) SyncGrid(_ context.Context, _ *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gridSynced++
	return nil
}

func (s *fakeOrderStore) FindItems(_ context.Context, orderID uint64) ([]*entity.OrderItem, error) {
	if s.itemsErr != nil {
		return nil, s.itemsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[orderID], nil
}

func (s *fakeOrderStore) FindAddresses(_ context.Context, orderID uint64) ([]*entity.OrderAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addresses[orderID], nil
}

func (s *fakeOrderStore) get(id uint64) *entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func testOrder(id uint64, incrementID string) *entity.Order {
	return &entity.Order{
		ID:           id,
		IncrementID:  incrementID,
		Status:       entity.OrderStatusPendingPayment,
		State:        entity.OrderStatePendingPayment,
		GrandTotal:   decimal.RequireFromString("49.90"),
		CurrencyCode: "EUR",
	}
}

func strPtr(v string) *string {
	return &v
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

type fakeSigner struct {
	creds   provider.Credentials
	counter int
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{creds: provider.Credentials{MerchantSiteUID: testMerchantSiteUID, SecretKey: testSecretKey}}
}

func (s *fakeSigner) NewRand() string {
	s.counter++
	return "rndtest" + strconv.Itoa(s.counter)
}

func (s *fakeSigner) SignObject(request *payload.Object) (*payload.Object, error) {
	signed := request.Clone()
	if signed.Text(provider.FieldRand) == "" {
		signed.SetString(provider.FieldRand, s.NewRand())
	}
	hash, err := provider.Sign(provider.FieldsFromObject(signed), s.creds)
	if err != nil {
		return nil, err
	}
	signed.SetString(provider.FieldVerificationHash, hash)
	return signed, nil
}

func (s *fakeSigner) Verify(fields provider.SignatureFields, hash string) bool {
	return provider.Verify(fields, hash, s.creds)
}

func mustObject(raw string) *payload.Object {
	obj, err := payload.ParseObject([]byte(raw))
	if err != nil {
		panic(err)
	}
	return obj
}
