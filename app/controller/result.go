package controller

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
	"github.com/vibast-solutions/ms-go-holestpay/app/types"
)

const resultPageLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body class="holestpay-result holestpay-result-{{.Page}}">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{- if .IncrementID}}
<p>Order number: <strong>{{.IncrementID}}</strong></p>
{{- end}}
{{- if .HPayStatus}}
<p>Payment status: {{.HPayStatus}}</p>
{{- end}}
</body>
</html>
`

var resultPageTemplate = template.Must(template.New("result").Parse(resultPageLayout))

type resultPageText struct {
	title   string
	message string
	status  int
}

var resultPages = map[service.ResultPage]resultPageText{
	service.ResultPageSuccess: {
		title:   "Payment successful",
		message: "Thank you. Your payment has been received and your order is being processed.",
		status:  http.StatusOK,
	},
	service.ResultPageFailure: {
		title:   "Payment failed",
		message: "Your payment could not be completed. Please try again or choose another payment method.",
		status:  http.StatusOK,
	},
	service.ResultPageNotFound: {
		title:   "Order not found",
		message: "We could not find the order for this payment.",
		status:  http.StatusNotFound,
	},
	service.ResultPageError: {
		title:   "Payment error",
		message: "An error occurred while processing the request.",
		status:  http.StatusInternalServerError,
	},
}

type resultPageData struct {
	Page        service.ResultPage
	Title       string
	Message     string
	IncrementID string
	HPayStatus  string
}

type resultResolver interface {
	HandleForwardedResponse(ctx context.Context, body *payload.Object) (*service.DispatchResult, error)
	ResolveResultPage(ctx context.Context, orderUID, explicitStatus string) (service.ResultPage, *entity.Order)
}

// ResultController renders the page a customer lands on after paying.
type ResultController struct {
	results resultResolver
	logger  logrus.FieldLogger
}

func NewResultController(results resultResolver) *ResultController {
	return &ResultController{
		results: results,
		logger:  factory.NewModuleLogger("result-controller"),
	}
}

func (c *ResultController) ShowResult(ctx echo.Context) error {
	logger := factory.LoggerWithContext(c.logger, ctx)

	req, err := types.NewResultRequestFromContext(ctx)
	if err != nil {
		logger.WithError(err).Warn("Invalid result request")
		return c.render(ctx, service.ResultPageError, nil)
	}

	if req.ForwardedResponse != "" {
		return c.handleForwarded(ctx, logger, req)
	}

	page, order := c.results.ResolveResultPage(ctx.Request().Context(), req.OrderUID, req.Status)
	return c.render(ctx, page, order)
}

func (c *ResultController) handleForwarded(ctx echo.Context, logger logrus.FieldLogger, req *types.ResultRequest) error {
	body, err := payload.ParseObject([]byte(req.ForwardedResponse))
	if err != nil {
		logger.WithError(err).Warn("Forwarded payment response is not a JSON object")
		return c.render(ctx, service.ResultPageError, nil)
	}

	result, err := c.results.HandleForwardedResponse(ctx.Request().Context(), body)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.WithError(err).Warn("Order not found for forwarded response")
			return c.render(ctx, service.ResultPageNotFound, nil)
		}
		logger.WithError(err).Error("Forwarded response processing failed")
		return c.render(ctx, service.ResultPageError, nil)
	}

	if page, ok := service.ExplicitResultPage(req.Status); ok {
		return c.render(ctx, page, result.Order)
	}
	return c.render(ctx, service.PageForOrder(result.Order), result.Order)
}

func (c *ResultController) render(ctx echo.Context, page service.ResultPage, order *entity.Order) error {
	text, ok := resultPages[page]
	if !ok {
		page = service.ResultPageError
		text = resultPages[page]
	}

	data := resultPageData{Page: page, Title: text.title, Message: text.message}
	if order != nil {
		data.IncrementID = order.IncrementID
		data.HPayStatus = order.HPayStatusValue()
	}

	var buf bytes.Buffer
	if err := resultPageTemplate.Execute(&buf, data); err != nil {
		c.logger.WithError(err).Error("Failed to render result page")
		return ctx.String(http.StatusInternalServerError, "internal server error")
	}
	return ctx.HTML(text.status, buf.String())
}
