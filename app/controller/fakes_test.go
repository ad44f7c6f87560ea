package controller

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
)

type fakeResultHandler struct {
	handlePaymentResultFn func(ctx context.Context, topic string, body *payload.Object) (*service.DispatchResult, error)
	handleLegacyStatusFn  func(ctx context.Context, incrementID, hpayStatus string) error
	handleForwardedFn     func(ctx context.Context, body *payload.Object) (*service.DispatchResult, error)
	resolveResultPageFn   func(ctx context.Context, orderUID, explicitStatus string) (service.ResultPage, *entity.Order)
	findOrderFn           func(ctx context.Context, orderUID string) (*entity.Order, error)

	topics []string
}

func (h *fakeResultHandler) HandlePaymentResult(ctx context.Context, topic string, body *payload.Object) (*service.DispatchResult, error) {
	h.topics = append(h.topics, topic)
	if h.handlePaymentResultFn != nil {
		return h.handlePaymentResultFn(ctx, topic, body)
	}
	return &service.DispatchResult{}, nil
}

func (h *fakeResultHandler) HandleLegacyStatus(ctx context.Context, incrementID, hpayStatus string) error {
	if h.handleLegacyStatusFn != nil {
		return h.handleLegacyStatusFn(ctx, incrementID, hpayStatus)
	}
	return nil
}

func (h *fakeResultHandler) HandleForwardedResponse(ctx context.Context, body *payload.Object) (*service.DispatchResult, error) {
	if h.handleForwardedFn != nil {
		return h.handleForwardedFn(ctx, body)
	}
	return &service.DispatchResult{}, nil
}

func (h *fakeResultHandler) ResolveResultPage(ctx context.Context, orderUID, explicitStatus string) (service.ResultPage, *entity.Order) {
	if h.resolveResultPageFn != nil {
		return h.resolveResultPageFn(ctx, orderUID, explicitStatus)
	}
	return service.ResultPageNotFound, nil
}

func (h *fakeResultHandler) FindOrder(ctx context.Context, orderUID string) (*entity.Order, error) {
	if h.findOrderFn != nil {
		return h.findOrderFn(ctx, orderUID)
	}
	return nil, service.ErrOrderNotFound
}

type fakePosConfigHandler struct {
	err    error
	bodies []*payload.Object
}

func (h *fakePosConfigHandler) HandlePosConfigUpdated(_ context.Context, body *payload.Object) error {
	h.bodies = append(h.bodies, body)
	return h.err
}

func newRecorderContext(method, target, body, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	req.Header.Set(echo.HeaderXRequestID, "req-test")
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}
