package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/mapper"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
	"github.com/vibast-solutions/ms-go-holestpay/app/types"
)

type orderFinder interface {
	FindOrder(ctx context.Context, orderUID string) (*entity.Order, error)
}

type merchantChangeSyncer interface {
	SyncMerchantChange(ctx context.Context, incrementID string) (bool, error)
}

type lockInspector interface {
	IsLocked(ctx context.Context, orderUID string) bool
}

type shippingCatalog interface {
	ListAvailableMethods(ctx context.Context) ([]*entity.ShippingMethod, error)
	QuoteShipping(ctx context.Context, hpayID int64, weightGrams, cartAmount float64, isCOD bool) (*service.ShippingQuote, error)
}

// InternalController exposes order and shipping state to other services.
type InternalController struct {
	orders   orderFinder
	sync     merchantChangeSyncer
	locks    lockInspector
	shipping shippingCatalog
	logger   logrus.FieldLogger
}

func NewInternalController(orders orderFinder, sync merchantChangeSyncer, locks lockInspector, shipping shippingCatalog) *InternalController {
	return &InternalController{
		orders:   orders,
		sync:     sync,
		locks:    locks,
		shipping: shipping,
		logger:   factory.NewModuleLogger("internal-controller"),
	}
}

func (c *InternalController) GetOrder(ctx echo.Context) error {
	req := types.NewOrderUIDRequestFromContext(ctx)
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orders.FindOrder(ctx.Request().Context(), req.OrderUID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get order failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (c *InternalController) SyncOrder(ctx echo.Context) error {
	req := types.NewOrderUIDRequestFromContext(ctx)
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	synced, err := c.sync.SyncMerchantChange(ctx.Request().Context(), req.OrderUID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		case errors.Is(err, provider.ErrSyncRejected):
			return c.writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Order sync failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.SyncOrderResponse{Synced: synced})
}

func (c *InternalController) GetLock(ctx echo.Context) error {
	req := types.NewOrderUIDRequestFromContext(ctx)
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	return ctx.JSON(http.StatusOK, &types.LockStatusResponse{
		OrderUID: req.OrderUID,
		Locked:   c.locks.IsLocked(ctx.Request().Context(), req.OrderUID),
	})
}

func (c *InternalController) ListShippingMethods(ctx echo.Context) error {
	methods, err := c.shipping.ListAvailableMethods(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List shipping methods failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListShippingMethodsResponse{Methods: mapper.ShippingMethodsToResponse(methods)})
}

func (c *InternalController) QuoteShipping(ctx echo.Context) error {
	req, err := types.NewShippingQuoteRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	quote, err := c.shipping.QuoteShipping(ctx.Request().Context(), req.HPayID, req.WeightGrams, req.CartAmount, req.IsCOD)
	if err != nil {
		if errors.Is(err, service.ErrShippingMethodNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "shipping method not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Shipping quote failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.ShippingQuoteToResponse(quote))
}

func (c *InternalController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Success: false, Message: message})
}
