package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
)

const (
	posFieldEnvironment     = "environment"
	posFieldMerchantSiteUID = "merchant_site_uid"
	posFieldCheckstr        = "checkstr"
	posFieldPOS             = "POS"
	posFieldShipping        = "shipping"
	posFieldFiscal          = "fiscal"
	posFieldEnabled         = "Enabled"
)

type posConfigurationRepository interface {
	FindByEnvironment(ctx context.Context, environment string) (*entity.PosConfiguration, error)
	Upsert(ctx context.Context, cfg *entity.PosConfiguration) error
}

type shippingSyncer interface {
	SyncShippingMethods(ctx context.Context, methods []payload.Value) (int, error)
}

// PosConfigurationService stores the POS document HolestPay pushes whenever
// the merchant changes payment, shipping or fiscal setup.
type PosConfigurationService struct {
	repo     posConfigurationRepository
	shipping shippingSyncer
	cfg      settings
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewPosConfigurationService(repo posConfigurationRepository, shipping shippingSyncer, cfg settings) *PosConfigurationService {
	return &PosConfigurationService{
		repo:     repo,
		shipping: shipping,
		cfg:      cfg,
		logger:   factory.NewModuleLogger("pos-config"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *PosConfigurationService) HandlePosConfigUpdated(ctx context.Context, body *payload.Object) error {
	for _, field := range []string{posFieldEnvironment, posFieldMerchantSiteUID, posFieldCheckstr} {
		if strings.TrimSpace(body.Text(field)) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
		}
	}
	pos, ok := body.Object(posFieldPOS)
	if !ok {
		return fmt.Errorf("%w: %s is required", ErrInvalidRequest, posFieldPOS)
	}

	environment := strings.TrimSpace(body.Text(posFieldEnvironment))
	merchantSiteUID := strings.TrimSpace(body.Text(posFieldMerchantSiteUID))
	if !strings.EqualFold(environment, s.cfg.GetEnvironment()) || merchantSiteUID != s.cfg.GetMerchantSiteUID() {
		s.logger.WithFields(logrus.Fields{
			"environment":       environment,
			"merchant_site_uid": merchantSiteUID,
		}).Warn("pos configuration push does not match local configuration")
		return fmt.Errorf("%w: %w", provider.ErrValidation, ErrEnvironmentMismatch)
	}

	creds := credentialsFrom(s.cfg)
	if err := creds.Validate(); err != nil {
		return err
	}
	if !provider.VerifyCheckString(body.Text(posFieldCheckstr), creds) {
		s.logger.WithField("merchant_site_uid", merchantSiteUID).Warn("pos configuration push has invalid checkstr")
		return ErrSignatureMismatch
	}

	data, err := pos.Encode()
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.repo.Upsert(ctx, &entity.PosConfiguration{
		Environment: s.cfg.GetEnvironment(),
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}

	if methods, ok := pos.Array(posFieldShipping); ok && s.shipping != nil {
		count, err := s.shipping.SyncShippingMethods(ctx, methods)
		if err != nil {
			s.logger.WithError(err).Error("shipping method sync after pos update failed")
		} else {
			s.logger.WithField("count", count).Info("shipping methods synced from pos update")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"environment": s.cfg.GetEnvironment(),
		"pos_keys":    pos.Keys(),
	}).Info("pos configuration updated")
	return nil
}

// CurrentPosConfig returns the stored POS document, or an empty one when
// HolestPay has not pushed one yet.
func (s *PosConfigurationService) CurrentPosConfig(ctx context.Context) (*payload.Object, error) {
	stored, err := s.repo.FindByEnvironment(ctx, s.cfg.GetEnvironment())
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return payload.NewObject(), nil
	}
	return payload.ParseObjectOrEmpty(stored.Data), nil
}

func (s *PosConfigurationService) FiscalMethodsEnabled(ctx context.Context) bool {
	pos, err := s.CurrentPosConfig(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to load pos configuration")
		return false
	}

	methods, ok := pos.Array(posFieldFiscal)
	if !ok {
		return false
	}
	for _, method := range methods {
		obj, ok := method.AsObject()
		if !ok {
			continue
		}
		if enabled, ok := obj.Get(posFieldEnabled); ok && enabled.Truthy() {
			return true
		}
	}
	return false
}
