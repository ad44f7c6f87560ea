package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
)

const (
	ProductionBaseURL = "https://pay.holest.com"
	SandboxBaseURL    = "https://sandbox.pay.holest.com"

	environmentProduction = "production"
	storeOrderPath        = "/clientpay/store"
	defaultSyncTimeout    = 30 * time.Second
	maxErrorBodyLength    = 512
)

type ClientConfig struct {
	Environment string
	BaseURL     string
	Timeout     time.Duration
}

type StoreOrderResult struct {
	Status      string
	RequestTime string
	Response    *payload.Object
}

// Client talks to the HolestPay merchant API.
type Client struct {
	baseURL string
	http    *resty.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = BaseURLForEnvironment(cfg.Environment)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{baseURL: baseURL, http: httpClient}
}

func BaseURLForEnvironment(environment string) string {
	if strings.EqualFold(strings.TrimSpace(environment), environmentProduction) {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// StoreOrder pushes a signed order document to HolestPay.
func (c *Client) StoreOrder(ctx context.Context, requestData *payload.Object) (*StoreOrderResult, error) {
	body := payload.NewObject()
	body.Set("request_data", payload.ObjectValue(requestData))
	raw, err := body.MarshalJSON()
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(raw).
		Post(storeOrderPath)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrSyncRejected, resp.StatusCode(), truncate(resp.String(), maxErrorBodyLength))
	}

	result, err := payload.ParseObject(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: invalid response body: %v", ErrSyncRejected, err)
	}

	status := strings.TrimSpace(result.Text("status"))
	requestTime := strings.TrimSpace(result.Text("request_time"))
	if status == "" || requestTime == "" {
		return nil, fmt.Errorf("%w: response is missing status or request_time", ErrSyncRejected)
	}

	return &StoreOrderResult{
		Status:      status,
		RequestTime: requestTime,
		Response:    result,
	}, nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
