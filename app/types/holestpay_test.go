package types

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(req *http.Request) echo.Context {
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestNewResultRequestFromContextQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/holestpay/result?order_id=100000001&status=success", nil)

	parsed, err := NewResultRequestFromContext(newContext(req))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.OrderUID != "100000001" || parsed.Status != "success" || parsed.ForwardedResponse != "" {
		t.Fatalf("unexpected request: %+v", parsed)
	}
}

func TestNewResultRequestFromContextFormField(t *testing.T) {
	form := url.Values{}
	form.Set("order_uid", "100000002")
	form.Set(ForwardedResponseField, `{"order_uid":"100000002","status":"PAYMENT:PAID"}`)
	req := httptest.NewRequest(http.MethodPost, "/holestpay/result", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	parsed, err := NewResultRequestFromContext(newContext(req))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.ForwardedResponse != `{"order_uid":"100000002","status":"PAYMENT:PAID"}` {
		t.Fatalf("unexpected forwarded response: %q", parsed.ForwardedResponse)
	}
}

func TestNewResultRequestFromContextRawBody(t *testing.T) {
	body := ForwardedResponseField + "=" + url.QueryEscape(`{"order_uid":"100000003"}`)
	req := httptest.NewRequest(http.MethodPost, "/holestpay/result", strings.NewReader(body))

	parsed, err := NewResultRequestFromContext(newContext(req))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.ForwardedResponse != `{"order_uid":"100000003"}` {
		t.Fatalf("unexpected forwarded response: %q", parsed.ForwardedResponse)
	}
}

func TestLegacyStatusRequestValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/holestpay/webhook?order_increment_id=100000001", nil)
	parsed := NewLegacyStatusRequestFromContext(newContext(req))
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected missing parameters error")
	}

	req = httptest.NewRequest(http.MethodPost, "/holestpay/webhook?order_increment_id=100000001&hpay_status=PAYMENT:PAID", nil)
	parsed = NewLegacyStatusRequestFromContext(newContext(req))
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if parsed.HPayStatus != "PAYMENT:PAID" {
		t.Fatalf("unexpected status: %s", parsed.HPayStatus)
	}
}

func TestNewCreateOrderRequestFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/holestpay/ajax/createorder", bytes.NewBufferString(`{"quote_id":"55","email":"a@b.c"}`))
	parsed, err := NewCreateOrderRequestFromContext(newContext(req))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.QuoteID != 55 || parsed.Validate() != nil {
		t.Fatalf("unexpected request: %+v", parsed)
	}

	req = httptest.NewRequest(http.MethodPost, "/holestpay/ajax/createorder", bytes.NewBufferString(`{}`))
	parsed, err = NewCreateOrderRequestFromContext(newContext(req))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Validate() == nil {
		t.Fatal("expected quote_id validation error")
	}

	req = httptest.NewRequest(http.MethodPost, "/holestpay/ajax/createorder", bytes.NewBufferString(`not json`))
	if _, err := NewCreateOrderRequestFromContext(newContext(req)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewShippingQuoteRequestFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/internal/shipping/methods/12/quote?weight=1500&cart_amount=99.5&cod=true", nil)
	ctx := newContext(req)
	ctx.SetParamNames("id")
	ctx.SetParamValues("12")

	parsed, err := NewShippingQuoteRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.HPayID != 12 || parsed.WeightGrams != 1500 || parsed.CartAmount != 99.5 || !parsed.IsCOD {
		t.Fatalf("unexpected request: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.WeightGrams = -1
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected weight validation error")
	}
}
