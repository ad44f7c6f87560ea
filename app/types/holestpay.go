package types

import (
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
)

const (
	ForwardedResponseField = "hpay_forwarded_payment_response"

	maxBodyBytes = 1 << 20
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type WebhookAcceptedResponse struct {
	Received     string `json:"received"`
	AcceptResult string `json:"accept_result"`
}

type SignedRequestResponse struct {
	Success       bool            `json:"success"`
	SignedRequest *payload.Object `json:"signed_request"`
}

type CreateOrderResponse struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"order_id"`
	OrderEntityID uint64 `json:"order_entity_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

type Order struct {
	ID           uint64          `json:"id"`
	IncrementID  string          `json:"increment_id"`
	OrderUID     string          `json:"order_uid"`
	HolestPayUID string          `json:"holestpay_uid,omitempty"`
	Status       string          `json:"status"`
	State        string          `json:"state"`
	HPayStatus   string          `json:"hpay_status,omitempty"`
	HPayData     *payload.Object `json:"hpay_data,omitempty"`
	GrandTotal   string          `json:"grand_total"`
	Currency     string          `json:"currency"`
	UpdatedAt    string          `json:"updated_at"`
}

type OrderEnvelopeResponse struct {
	Order *Order `json:"order"`
}

type SyncOrderResponse struct {
	Synced bool `json:"synced"`
}

type LockStatusResponse struct {
	OrderUID string `json:"order_uid"`
	Locked   bool   `json:"locked"`
}

type ShippingMethod struct {
	HPayID           int64  `json:"hpay_id"`
	Code             string `json:"code"`
	UID              string `json:"uid"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	ShippingCurrency string `json:"shipping_currency"`
}

type ListShippingMethodsResponse struct {
	Methods []*ShippingMethod `json:"methods"`
}

type ShippingQuoteResponse struct {
	Method   *ShippingMethod `json:"method"`
	Cost     string          `json:"cost"`
	Currency string          `json:"currency"`
}

// ReadJSONObject reads the request body as a key ordered JSON object.
func ReadJSONObject(ctx echo.Context) (*payload.Object, error) {
	raw, err := readBody(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, errors.New("request body is empty")
	}
	return payload.ParseObject(raw)
}

func readBody(ctx echo.Context) ([]byte, error) {
	body := ctx.Request().Body
	if body == nil {
		return nil, nil
	}
	return io.ReadAll(io.LimitReader(body, maxBodyBytes))
}

type WebhookRequest struct {
	Topic string
}

func NewWebhookRequestFromContext(ctx echo.Context) *WebhookRequest {
	return &WebhookRequest{Topic: strings.TrimSpace(ctx.QueryParam("topic"))}
}

type LegacyStatusRequest struct {
	OrderIncrementID string
	HPayStatus       string
}

func NewLegacyStatusRequestFromContext(ctx echo.Context) *LegacyStatusRequest {
	return &LegacyStatusRequest{
		OrderIncrementID: strings.TrimSpace(ctx.FormValue("order_increment_id")),
		HPayStatus:       strings.TrimSpace(ctx.FormValue("hpay_status")),
	}
}

func (r *LegacyStatusRequest) Validate() error {
	if r.OrderIncrementID == "" || r.HPayStatus == "" {
		return errors.New("missing parameters")
	}
	return nil
}

type ResultRequest struct {
	OrderUID          string
	Status            string
	ForwardedResponse string
}

// NewResultRequestFromContext collects the result page parameters. The
// forwarded response is read from the form field first, then from a raw
// urlencoded body.
func NewResultRequestFromContext(ctx echo.Context) (*ResultRequest, error) {
	req := &ResultRequest{
		OrderUID: strings.TrimSpace(ctx.FormValue("order_uid")),
		Status:   strings.TrimSpace(ctx.FormValue("status")),
	}
	if req.OrderUID == "" {
		req.OrderUID = strings.TrimSpace(ctx.FormValue("order_id"))
	}

	if ctx.Request().Method != echo.POST {
		return req, nil
	}

	req.ForwardedResponse = strings.TrimSpace(ctx.FormValue(ForwardedResponseField))
	if req.ForwardedResponse != "" {
		return req, nil
	}

	raw, err := readBody(ctx)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(string(raw), ForwardedResponseField) {
		return req, nil
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, err
	}
	req.ForwardedResponse = strings.TrimSpace(values.Get(ForwardedResponseField))
	return req, nil
}

type CreateOrderRequest struct {
	QuoteID uint64
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	body, err := ReadJSONObject(ctx)
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(body.Text("quote_id"))
	if raw == "" {
		return &CreateOrderRequest{}, nil
	}
	quoteID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &CreateOrderRequest{QuoteID: quoteID}, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.QuoteID == 0 {
		return errors.New("quote_id is required")
	}
	return nil
}

type OrderUIDRequest struct {
	OrderUID string
}

func NewOrderUIDRequestFromContext(ctx echo.Context) *OrderUIDRequest {
	return &OrderUIDRequest{OrderUID: strings.TrimSpace(ctx.Param("uid"))}
}

func (r *OrderUIDRequest) Validate() error {
	if r.OrderUID == "" {
		return errors.New("order uid is required")
	}
	return nil
}

type ShippingQuoteRequest struct {
	HPayID      int64
	WeightGrams float64
	CartAmount  float64
	IsCOD       bool
}

func NewShippingQuoteRequestFromContext(ctx echo.Context) (*ShippingQuoteRequest, error) {
	hpayID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	req := &ShippingQuoteRequest{HPayID: hpayID}

	if raw := strings.TrimSpace(ctx.QueryParam("weight")); raw != "" {
		if req.WeightGrams, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, err
		}
	}
	if raw := strings.TrimSpace(ctx.QueryParam("cart_amount")); raw != "" {
		if req.CartAmount, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, err
		}
	}
	if raw := strings.TrimSpace(ctx.QueryParam("cod")); raw != "" {
		if req.IsCOD, err = strconv.ParseBool(raw); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (r *ShippingQuoteRequest) Validate() error {
	if r.HPayID <= 0 {
		return errors.New("invalid shipping method id")
	}
	if r.WeightGrams < 0 {
		return errors.New("weight must be >= 0")
	}
	if r.CartAmount < 0 {
		return errors.New("cart_amount must be >= 0")
	}
	return nil
}
