package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
)

const requestDataKey = "request_data"

type objectSigner interface {
	SignObject(request *payload.Object) (*payload.Object, error)
}

type PaymentSigningService struct {
	signer objectSigner
}

func NewPaymentSigningService(signer objectSigner) *PaymentSigningService {
	return &PaymentSigningService{signer: signer}
}

// SignPaymentRequest signs the checkout payment request built by the store
// front end. A request_data wrapper is unwrapped first.
func (s *PaymentSigningService) SignPaymentRequest(_ context.Context, body *payload.Object) (*payload.Object, error) {
	request := body
	if inner, ok := body.Object(requestDataKey); ok {
		request = inner
	}

	for _, field := range []string{provider.FieldOrderUID, provider.FieldOrderAmount, provider.FieldOrderCurrency} {
		if strings.TrimSpace(request.Text(field)) == "" {
			return nil, fmt.Errorf("%w: %s is required in request data", provider.ErrValidation, field)
		}
	}

	return s.signer.SignObject(request)
}
