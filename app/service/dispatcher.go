package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/factory"
	"github.com/vibast-solutions/ms-go-holestpay/app/metrics"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
	"github.com/vibast-solutions/ms-go-holestpay/config"
)

const (
	TopicPayResult        = "payresult"
	TopicOrderUpdate      = "orderupdate"
	TopicPosConfigUpdated = "posconfig-updated"
)

type dispatchState string

const (
	stateReceived      dispatchState = "RECEIVED"
	stateLocking       dispatchState = "LOCKING"
	stateReconciling   dispatchState = "RECONCILING"
	stateMerging       dispatchState = "MERGING"
	statePersisted     dispatchState = "PERSISTED"
	stateSyncTriggered dispatchState = "SYNC_TRIGGERED"
	stateSyncSkipped   dispatchState = "SYNC_SKIPPED"
	stateDone          dispatchState = "DONE"
	stateError         dispatchState = "ERROR"
)

// ResultPage is the page shown to a customer returning from HolestPay.
type ResultPage string

const (
	ResultPageSuccess  ResultPage = "success"
	ResultPageFailure  ResultPage = "failure"
	ResultPageNotFound ResultPage = "not_found"
	ResultPageError    ResultPage = "error"
)

type orderLocker interface {
	Lock(ctx context.Context, orderUID string) bool
	Unlock(ctx context.Context, orderUID string) bool
}

type orderSyncer interface {
	ShouldSync(ctx context.Context, order *entity.Order, isStatusChange bool) bool
	SyncOrder(ctx context.Context, order *entity.Order, withStatus bool) error
}

type orderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *entity.OrderEvent) error
}

type signatureVerifier interface {
	Verify(fields provider.SignatureFields, hash string) bool
}

type DispatchResult struct {
	Order        *entity.Order
	Outcome      ReconcileOutcome
	LockAcquired bool
	Synced       bool
}

// ResultDispatcher applies provider payment results to store orders.
type ResultDispatcher struct {
	orders   orderStore
	locks    orderLocker
	syncer   orderSyncer
	events   orderEventPublisher
	verifier signatureVerifier
	merge    config.MergeConfig
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewResultDispatcher(
	orders orderStore,
	locks orderLocker,
	syncer orderSyncer,
	events orderEventPublisher,
	verifier signatureVerifier,
	merge config.MergeConfig,
	m *metrics.Metrics,
) *ResultDispatcher {
	if merge.WebhookDepth < 1 {
		merge.WebhookDepth = 5
	}
	if merge.ForwardedDepth < 1 {
		merge.ForwardedDepth = 1
	}

	return &ResultDispatcher{
		orders:   orders,
		locks:    locks,
		syncer:   syncer,
		events:   events,
		verifier: verifier,
		merge:    merge,
		metrics:  m,
		logger:   factory.NewModuleLogger("result-dispatcher"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type dispatchInput struct {
	channel   string
	topic     string
	orderUID  string
	status    string
	body      *payload.Object
	depth     int
	allowSync bool
}

// HandlePaymentResult processes payresult and orderupdate webhooks.
func (d *ResultDispatcher) HandlePaymentResult(ctx context.Context, topic string, body *payload.Object) (*DispatchResult, error) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic != TopicPayResult && topic != TopicOrderUpdate {
		return nil, fmt.Errorf("%w: unsupported topic %q", ErrInvalidRequest, topic)
	}

	orderUID := strings.TrimSpace(body.Text(provider.FieldOrderUID))
	status := strings.TrimSpace(body.Text(provider.FieldStatus))
	if orderUID == "" || status == "" {
		return nil, fmt.Errorf("%w: missing required parameters: order_uid and status", ErrInvalidRequest)
	}

	d.checkSignature(body, topic)

	return d.dispatch(ctx, dispatchInput{
		channel:   entity.ProcessingChannelWebhook,
		topic:     topic,
		orderUID:  orderUID,
		status:    status,
		body:      body,
		depth:     d.merge.WebhookDepth,
		allowSync: topic != TopicOrderUpdate,
	})
}

// HandleForwardedResponse processes a payment response relayed by the
// customer's browser. Outbound sync is always skipped for it.
func (d *ResultDispatcher) HandleForwardedResponse(ctx context.Context, body *payload.Object) (*DispatchResult, error) {
	orderUID := strings.TrimSpace(body.Text(provider.FieldOrderUID))
	if orderUID == "" {
		return nil, fmt.Errorf("%w: forwarded response has no order_uid", ErrInvalidRequest)
	}

	return d.dispatch(ctx, dispatchInput{
		channel:   entity.ProcessingChannelForwarded,
		topic:     entity.ProcessingChannelForwarded,
		orderUID:  orderUID,
		status:    strings.TrimSpace(body.Text(provider.FieldStatus)),
		body:      body,
		depth:     d.merge.ForwardedDepth,
		allowSync: true,
	})
}

func (d *ResultDispatcher) dispatch(ctx context.Context, in dispatchInput) (result *DispatchResult, err error) {
	logger := d.logger.WithFields(logrus.Fields{
		"order_uid": in.orderUID,
		"channel":   in.channel,
		"topic":     in.topic,
	})
	d.transition(logger, stateReceived)

	defer func() {
		if err != nil {
			d.transition(logger.WithError(err), stateError)
			d.metrics.ObserveProviderMessage(in.channel, in.topic, "error")
			return
		}
		d.metrics.ObserveProviderMessage(in.channel, in.topic, "ok")
	}()

	d.transition(logger, stateLocking)
	locked := d.locks.Lock(ctx, in.orderUID)
	if locked {
		defer d.locks.Unlock(context.WithoutCancel(ctx), in.orderUID)
	} else {
		logger.Warn("order lock not acquired, proceeding without exclusivity")
	}

	order, err := d.resolveOrder(ctx, in.orderUID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, in.orderUID)
	}
	logger = logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"increment_id": order.IncrementID,
	})

	if in.channel == entity.ProcessingChannelForwarded {
		order.MarkProcessing(in.channel)
		defer order.ClearProcessing()
	}

	d.transition(logger, stateReconciling)
	oldStatus := order.Status
	outcome := ReconcileNoMapping
	if in.status != "" {
		outcome = Reconcile(order, in.status)
	}
	d.metrics.ObserveReconcile(outcome.String())

	if !order.HasHolestPayUID() {
		uid := in.orderUID
		order.HolestPayUID = &uid
	}

	d.transition(logger, stateMerging)
	merged := payload.Merge(payload.ParseObjectOrEmpty(order.HPayDataValue()), in.body, in.depth)
	encoded, err := merged.Encode()
	if err != nil {
		return nil, err
	}
	order.HPayData = &encoded
	order.UpdatedAt = d.now()

	if err := d.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	d.transition(logger, statePersisted)

	if err := d.orders.SyncGrid(ctx, order); err != nil {
		logger.WithError(err).Warn("order grid sync failed")
	}

	synced := false
	if in.allowSync && d.syncer != nil && d.syncer.ShouldSync(ctx, order, false) {
		d.transition(logger, stateSyncTriggered)
		if err := d.syncer.SyncOrder(ctx, order, false); err != nil {
			logger.WithError(err).Warn("outbound order sync failed")
		} else {
			synced = true
		}
	} else {
		d.transition(logger, stateSyncSkipped)
	}

	if outcome == ReconcileChanged {
		d.publish(ctx, logger, order, in, oldStatus)
	}

	d.transition(logger.WithField("outcome", outcome.String()), stateDone)
	return &DispatchResult{
		Order:        order,
		Outcome:      outcome,
		LockAcquired: locked,
		Synced:       synced,
	}, nil
}

// HandleLegacyStatus stores a raw hpay_status without mapping it.
func (d *ResultDispatcher) HandleLegacyStatus(ctx context.Context, incrementID, hpayStatus string) error {
	incrementID = strings.TrimSpace(incrementID)
	hpayStatus = strings.TrimSpace(hpayStatus)
	if incrementID == "" || hpayStatus == "" {
		return fmt.Errorf("%w: missing parameters", ErrInvalidRequest)
	}

	logger := d.logger.WithField("increment_id", incrementID)
	if d.locks.Lock(ctx, incrementID) {
		defer d.locks.Unlock(context.WithoutCancel(ctx), incrementID)
	} else {
		logger.Warn("order lock not acquired, proceeding without exclusivity")
	}

	order, err := d.orders.FindByIncrementID(ctx, incrementID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, incrementID)
	}

	order.HPayStatus = &hpayStatus
	order.UpdatedAt = d.now()
	if err := d.orders.Update(ctx, order); err != nil {
		return err
	}
	if err := d.orders.SyncGrid(ctx, order); err != nil {
		logger.WithError(err).Warn("order grid sync failed")
	}

	d.metrics.ObserveProviderMessage(entity.ProcessingChannelWebhook, "legacy", "ok")
	return nil
}

// ResolveResultPage picks the page for a returning customer. An explicit
// success or failure status wins when the order exists.
func (d *ResultDispatcher) ResolveResultPage(ctx context.Context, orderUID, explicitStatus string) (ResultPage, *entity.Order) {
	orderUID = strings.TrimSpace(orderUID)
	if orderUID == "" {
		return ResultPageNotFound, nil
	}

	order, err := d.resolveOrder(ctx, orderUID)
	if err != nil {
		d.logger.WithError(err).WithField("order_uid", orderUID).Error("failed to load order for result page")
		return ResultPageError, nil
	}
	if order == nil {
		return ResultPageNotFound, nil
	}

	if page, ok := ExplicitResultPage(explicitStatus); ok {
		return page, order
	}
	return PageForOrder(order), order
}

// ExplicitResultPage maps a caller supplied success or failure status,
// ignoring case and surrounding spaces.
func ExplicitResultPage(status string) (ResultPage, bool) {
	switch page := ResultPage(strings.ToLower(strings.TrimSpace(status))); page {
	case ResultPageSuccess, ResultPageFailure:
		return page, true
	}
	return "", false
}

// PageForOrder decides between the success and failure page from hpay_status.
func PageForOrder(order *entity.Order) ResultPage {
	if IsSuccessByKeyword(order.HPayStatusValue()) {
		return ResultPageSuccess
	}
	return ResultPageFailure
}

// FindOrder resolves a provider order uid the same way result handling does.
func (d *ResultDispatcher) FindOrder(ctx context.Context, orderUID string) (*entity.Order, error) {
	order, err := d.resolveOrder(ctx, strings.TrimSpace(orderUID))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// resolveOrder tries the increment id, then the stored holestpay_uid, then
// treats a numeric uid as a legacy quote id.
func (d *ResultDispatcher) resolveOrder(ctx context.Context, orderUID string) (*entity.Order, error) {
	order, err := d.orders.FindByIncrementID(ctx, orderUID)
	if err != nil || order != nil {
		return order, err
	}

	order, err = d.orders.FindByHolestPayUID(ctx, orderUID)
	if err != nil || order != nil {
		return order, err
	}

	quoteID, err := strconv.ParseUint(orderUID, 10, 64)
	if err != nil || quoteID == 0 {
		return nil, nil
	}
	return d.orders.FindByQuoteID(ctx, quoteID)
}

func (d *ResultDispatcher) checkSignature(body *payload.Object, topic string) {
	hash := strings.TrimSpace(body.Text(provider.FieldVerificationHash))
	if hash == "" || d.verifier == nil {
		return
	}
	if !d.verifier.Verify(provider.FieldsFromObject(body), hash) {
		d.logger.WithFields(logrus.Fields{
			"order_uid": body.Text(provider.FieldOrderUID),
			"topic":     topic,
		}).Warn("webhook verificationhash does not match")
		d.metrics.ObserveSignatureMismatch(topic)
	}
}

func (d *ResultDispatcher) publish(ctx context.Context, logger logrus.FieldLogger, order *entity.Order, in dispatchInput, oldStatus string) {
	if d.events == nil {
		return
	}

	event := &entity.OrderEvent{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		IncrementID: order.IncrementID,
		OrderUID:    in.orderUID,
		Source:      in.channel,
		HPayStatus:  order.HPayStatusValue(),
		OldStatus:   oldStatus,
		NewStatus:   order.Status,
		NewState:    order.State,
		OccurredAt:  d.now(),
	}
	if err := d.events.PublishOrderEvent(ctx, event); err != nil {
		logger.WithError(err).Warn("order event publish failed")
		d.metrics.ObserveEventPublished("failed")
		return
	}
	d.metrics.ObserveEventPublished("ok")
}

func (d *ResultDispatcher) transition(logger logrus.FieldLogger, state dispatchState) {
	logger.WithField("state", string(state)).Debug("result dispatch state")
}
