package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
)

type orderInitStore interface {
	FindByQuoteID(ctx context.Context, quoteID uint64) (*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
	SyncGrid(ctx context.Context, order *entity.Order) error
}

// OrderInitializer moves a freshly placed HolestPay order into the configured
// new-order status before the customer is sent to the payment page.
type OrderInitializer struct {
	orders orderInitStore
	cfg    settings
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewOrderInitializer(orders orderInitStore, cfg settings) *OrderInitializer {
	return &OrderInitializer{
		orders: orders,
		cfg:    cfg,
		logger: factory.NewModuleLogger("order-init"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrderInitializer) InitializeOrder(ctx context.Context, quoteID uint64) (*entity.Order, error) {
	if quoteID == 0 {
		return nil, ErrInvalidRequest
	}

	order, err := s.orders.FindByQuoteID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	status := strings.TrimSpace(s.cfg.GetNewOrderStatus())
	if status == "" {
		status = entity.OrderStatusPendingPayment
	}
	state, ok := StateForStatus(status)
	if !ok || state == entity.OrderStateNew {
		state = entity.OrderStatePendingPayment
	}

	order.Status = status
	order.State = state
	order.UpdatedAt = s.now()

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	if err := s.orders.SyncGrid(ctx, order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("order grid sync failed")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"increment_id": order.IncrementID,
		"status":       status,
	}).Info("order initialized for holestpay payment")
	return order, nil
}
