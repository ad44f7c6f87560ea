package service

import "github.com/vibast-solutions/ms-go-holestpay/app/provider"

// settings is the read-only view of the HolestPay configuration that services
// receive through their constructors.
type settings interface {
	GetMerchantSiteUID() string
	GetSecretKey() string
	GetEnvironment() string
	IsDebug() bool
	IsManageAllOrders() bool
	GetNewOrderStatus() string
	GetStoreLocale() string
}

func credentialsFrom(cfg settings) provider.Credentials {
	return provider.Credentials{
		MerchantSiteUID: cfg.GetMerchantSiteUID(),
		SecretKey:       cfg.GetSecretKey(),
	}
}
