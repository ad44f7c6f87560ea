package provider

import "errors"

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("holestpay configuration is incomplete")
	ErrSyncRejected  = errors.New("holestpay rejected order sync")
)
