package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
	"github.com/vibast-solutions/ms-go-holestpay/app/types"
)

type paymentSigner interface {
	SignPaymentRequest(ctx context.Context, body *payload.Object) (*payload.Object, error)
}

type orderInitializer interface {
	InitializeOrder(ctx context.Context, quoteID uint64) (*entity.Order, error)
}

// PaymentController serves the checkout AJAX endpoints.
type PaymentController struct {
	signer      paymentSigner
	initializer orderInitializer
	logger      logrus.FieldLogger
}

func NewPaymentController(signer paymentSigner, initializer orderInitializer) *PaymentController {
	return &PaymentController{
		signer:      signer,
		initializer: initializer,
		logger:      factory.NewModuleLogger("payment-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) SignPayment(ctx echo.Context) error {
	body, err := types.ReadJSONObject(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "Invalid request data")
	}

	signed, err := c.signer.SignPaymentRequest(ctx.Request().Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrValidation):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, provider.ErrConfiguration):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Payment signing is not configured")
			return c.writeError(ctx, http.StatusInternalServerError, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Sign payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.SignedRequestResponse{Success: true, SignedRequest: signed})
}

func (c *PaymentController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "Invalid request data")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.initializer.InitializeOrder(ctx.Request().Context(), req.QuoteID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "No order found for the active quote")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create order failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.CreateOrderResponse{
		Success:       true,
		OrderID:       order.IncrementID,
		OrderEntityID: order.ID,
		Status:        order.Status,
		Message:       "Order initialized with status: " + order.Status,
	})
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Success: false, Message: message})
}
