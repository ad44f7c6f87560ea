package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
	"github.com/vibast-solutions/ms-go-holestpay/app/types"
)

const (
	webhookReceived       = "OK"
	acceptPosConfigUpdate = "POS_CONFIG_UPDATED"
)

type paymentResultHandler interface {
	HandlePaymentResult(ctx context.Context, topic string, body *payload.Object) (*service.DispatchResult, error)
	HandleLegacyStatus(ctx context.Context, incrementID, hpayStatus string) error
}

type posConfigHandler interface {
	HandlePosConfigUpdated(ctx context.Context, body *payload.Object) error
}

// WebhookController accepts HolestPay server to server notifications.
type WebhookController struct {
	results   paymentResultHandler
	posConfig posConfigHandler
	logger    logrus.FieldLogger
}

func NewWebhookController(results paymentResultHandler, posConfig posConfigHandler) *WebhookController {
	return &WebhookController{
		results:   results,
		posConfig: posConfig,
		logger:    factory.NewModuleLogger("webhook-controller"),
	}
}

// HandleWebhook routes by topic. Every failure is answered with 400 so
// HolestPay retries the delivery.
func (c *WebhookController) HandleWebhook(ctx echo.Context) error {
	req := types.NewWebhookRequestFromContext(ctx)
	logger := factory.LoggerWithContext(c.logger, ctx).WithField("topic", req.Topic)

	switch req.Topic {
	case service.TopicPosConfigUpdated:
		body, err := types.ReadJSONObject(ctx)
		if err != nil {
			logger.WithError(err).Warn("Invalid pos configuration webhook body")
			return c.writeError(ctx, "Invalid webhook data")
		}
		if err := c.posConfig.HandlePosConfigUpdated(ctx.Request().Context(), body); err != nil {
			return c.reject(ctx, logger, err)
		}
		return ctx.JSON(http.StatusOK, &types.WebhookAcceptedResponse{Received: webhookReceived, AcceptResult: acceptPosConfigUpdate})

	case service.TopicPayResult, service.TopicOrderUpdate:
		body, err := types.ReadJSONObject(ctx)
		if err != nil {
			logger.WithError(err).Warn("Invalid payment result webhook body")
			return c.writeError(ctx, "Invalid webhook data")
		}
		if _, err := c.results.HandlePaymentResult(ctx.Request().Context(), req.Topic, body); err != nil {
			return c.reject(ctx, logger, err)
		}
		return ctx.JSON(http.StatusOK, &types.WebhookAcceptedResponse{Received: webhookReceived, AcceptResult: strings.ToUpper(req.Topic)})

	default:
		legacy := types.NewLegacyStatusRequestFromContext(ctx)
		if err := legacy.Validate(); err != nil {
			return c.writeError(ctx, "Missing parameters")
		}
		if err := c.results.HandleLegacyStatus(ctx.Request().Context(), legacy.OrderIncrementID, legacy.HPayStatus); err != nil {
			return c.reject(ctx, logger, err)
		}
		return ctx.JSON(http.StatusOK, &types.SuccessResponse{Success: true})
	}
}

func (c *WebhookController) reject(ctx echo.Context, logger logrus.FieldLogger, err error) error {
	switch {
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrInvalidRequest):
		logger.WithError(err).Warn("Webhook rejected")
	default:
		logger.WithError(err).Error("Webhook processing failed")
	}
	return c.writeError(ctx, err.Error())
}

func (c *WebhookController) writeError(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Success: false, Message: message})
}
