package service

import "errors"

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrOrderNotFound          = errors.New("order not found")
	ErrSignatureMismatch      = errors.New("signature mismatch")
	ErrEnvironmentMismatch    = errors.New("environment or merchant site does not match configuration")
	ErrShippingMethodNotFound = errors.New("shipping method not found")
)
