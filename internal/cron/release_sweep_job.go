package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/entregave/dispatch-backend/internal/integrations"
	"github.com/entregave/dispatch-backend/internal/merchants"
	"github.com/entregave/dispatch-backend/internal/orders"
	"github.com/entregave/dispatch-backend/internal/pricing"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/internal/scheduled"
	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	"github.com/entregave/dispatch-backend/pkg/geo"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const defaultSweepBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type legPricer interface {
	Quote(ctx context.Context, origin, destination geo.Point, vehicleType string, cfg pricing.Config) (*pricing.Quote, error)
}

type configReader interface {
	Get(ctx context.Context, key string) (*models.AppConfig, error)
}

// ReleaseSweepJobParams configure the scheduled order release sweep.
type ReleaseSweepJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Scheduled   scheduled.Repository
	Orders      orders.Repository
	Merchants   merchants.Repository
	Pricer      legPricer
	Configs     configReader
	Recorder    syslog.Recorder
	Broadcaster realtime.Broadcaster
	Notifier    integrations.Notifier
	BatchSize   int
}

// NewReleaseSweepJob builds the job that turns due scheduled rows into live
// orders.
func NewReleaseSweepJob(params ReleaseSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Scheduled == nil {
		return nil, fmt.Errorf("scheduled repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Merchants == nil {
		return nil, fmt.Errorf("merchants repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &releaseSweepJob{
		logg:        params.Logger,
		db:          params.DB,
		scheduled:   params.Scheduled,
		orders:      params.Orders,
		merchants:   params.Merchants,
		pricer:      params.Pricer,
		configs:     params.Configs,
		recorder:    params.Recorder,
		broadcaster: params.Broadcaster,
		notifier:    params.Notifier,
		batch:       batch,
		now:         time.Now,
	}, nil
}

type releaseSweepJob struct {
	logg        *logger.Logger
	db          txRunner
	scheduled   scheduled.Repository
	orders      orders.Repository
	merchants   merchants.Repository
	pricer      legPricer
	configs     configReader
	recorder    syslog.Recorder
	broadcaster realtime.Broadcaster
	notifier    integrations.Notifier
	batch       int
	now         func() time.Time
}

func (j *releaseSweepJob) Name() string { return "release-sweep" }

// sweepOutcome records what happened to one claimed row so fanout can run
// after the batch commits.
type sweepOutcome struct {
	scheduledID int64
	order       *models.Order
	err         error
}

func (j *releaseSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cfg := j.loadPricingConfig(ctx)

	var outcomes []sweepOutcome
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.scheduled.WithTx(tx).ClaimDue(ctx, now, j.batch)
		if err != nil {
			return fmt.Errorf("claim due scheduled orders: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			outcomes = append(outcomes, j.releaseRow(ctx, tx, row, cfg, now))
		}
		return nil
	})
	if err != nil {
		return err
	}

	var rowErrs []error
	for _, outcome := range outcomes {
		j.fanout(ctx, outcome)
		if outcome.err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("scheduled row %d: %w", outcome.scheduledID, outcome.err))
		}
	}
	if len(outcomes) > 0 {
		logCtx := j.logg.WithField(ctx, "count", len(outcomes))
		j.logg.Info(logCtx, "release sweep batch complete")
	}
	return multierr.Combine(rowErrs...)
}

// releaseRow processes one claimed row under a savepoint so its failure
// rolls back only its own writes. The row is then marked error and the
// sweep moves on.
func (j *releaseSweepJob) releaseRow(ctx context.Context, tx *gorm.DB, row models.ScheduledOrder, cfg pricing.Config, now time.Time) sweepOutcome {
	savepoint := fmt.Sprintf("sweep_row_%d", row.ID)
	if tx != nil {
		tx.SavePoint(savepoint)
	}

	order, err := j.buildOrder(ctx, tx, row, cfg)
	if err == nil {
		err = j.scheduled.WithTx(tx).MarkProcessed(ctx, row.ID, now)
	}
	if err != nil {
		if tx != nil {
			tx.RollbackTo(savepoint)
		}
		reason := err.Error()
		if markErr := j.scheduled.WithTx(tx).MarkError(ctx, row.ID, reason, now); markErr != nil {
			j.logg.Error(ctx, fmt.Sprintf("mark scheduled row %d as error", row.ID), markErr)
		}
		return sweepOutcome{scheduledID: row.ID, err: err}
	}
	return sweepOutcome{scheduledID: row.ID, order: order}
}

func (j *releaseSweepJob) buildOrder(ctx context.Context, tx *gorm.DB, row models.ScheduledOrder, cfg pricing.Config) (*models.Order, error) {
	var payload scheduled.OrderPayload
	if err := json.Unmarshal(row.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	vehicleType, err := enums.ParseVehicleType(payload.VehicleType)
	if err != nil {
		return nil, err
	}

	merchantID, err := j.resolveMerchant(ctx, tx, payload)
	if err != nil {
		return nil, fmt.Errorf("resolve merchant: %w", err)
	}

	order := &models.Order{
		Description:     payload.Description,
		DeliveryAddress: payload.DeliveryAddress,
		VehicleType:     vehicleType,
		Details:         payload.Details,
		PickupPhone:     payload.PickupPhone,
		DropoffPhone:    payload.DropoffPhone,
		MerchantID:      merchantID,
		Currency:        "USD",
		Status:          enums.OrderStatusPending,
		CreatedBy:       row.CreatedBy,
	}
	if payload.HasCoordinates() {
		order.PickupLat = *payload.PickupLat
		order.PickupLng = *payload.PickupLng
		order.DropoffLat = *payload.DropoffLat
		order.DropoffLng = *payload.DropoffLng
		j.applyQuote(ctx, order, cfg)
	} else {
		logCtx := j.logg.WithField(ctx, "scheduled_id", row.ID)
		j.logg.Warn(logCtx, "scheduled payload has no coordinates, releasing unpriced")
	}

	ordersRepo := j.orders.WithTx(tx)
	if _, err := ordersRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if err := ordersRepo.AppendStatusLog(ctx, &models.OrderStatusLog{
		OrderID: order.ID,
		Status:  enums.OrderStatusPending,
	}); err != nil {
		return nil, fmt.Errorf("append status log: %w", err)
	}
	return order, nil
}

// resolveMerchant reuses the payload merchant when present and otherwise
// creates an ad-hoc one under the custom_ id prefix.
func (j *releaseSweepJob) resolveMerchant(ctx context.Context, tx *gorm.DB, payload scheduled.OrderPayload) (string, error) {
	merchantID := ""
	if payload.MerchantID != nil {
		merchantID = *payload.MerchantID
	}
	if merchantID == "" {
		merchantID = "custom_" + uuid.NewString()
	}
	name := payload.MerchantName
	if name == "" {
		name = merchantID
	}
	merchant := &models.Merchant{
		ID:   merchantID,
		Name: name,
		Lat:  payload.PickupLat,
		Lng:  payload.PickupLng,
	}
	if _, err := j.merchants.WithTx(tx).Upsert(ctx, merchant); err != nil {
		return "", err
	}
	return merchantID, nil
}

func (j *releaseSweepJob) applyQuote(ctx context.Context, order *models.Order, cfg pricing.Config) {
	if j.pricer == nil {
		return
	}
	if _, ok := cfg[order.VehicleType.String()]; !ok {
		j.logg.Warn(ctx, fmt.Sprintf("vehicle type %q has no pricing entry", order.VehicleType))
		return
	}
	quote, err := j.pricer.Quote(ctx,
		geo.Point{Lat: order.PickupLat, Lng: order.PickupLng},
		geo.Point{Lat: order.DropoffLat, Lng: order.DropoffLng},
		order.VehicleType.String(), cfg)
	if err != nil {
		j.logg.Warn(ctx, fmt.Sprintf("pricing failed during release: %v", err))
		return
	}
	cost := quote.Cost
	distance := quote.DistanceKm
	order.Cost = &cost
	order.Currency = quote.Currency
	order.DistanceKm = &distance
}

func (j *releaseSweepJob) loadPricingConfig(ctx context.Context) pricing.Config {
	if j.configs == nil {
		return pricing.Config{}
	}
	row, err := j.configs.Get(ctx, pricing.ConfigKey)
	if err != nil {
		j.logg.Warn(ctx, fmt.Sprintf("pricing config unavailable: %v", err))
		return pricing.Config{}
	}
	cfg, err := pricing.ParseConfig(row.Value)
	if err != nil {
		j.logg.Warn(ctx, fmt.Sprintf("pricing config unreadable: %v", err))
		return pricing.Config{}
	}
	return cfg
}

func (j *releaseSweepJob) fanout(ctx context.Context, outcome sweepOutcome) {
	if outcome.err != nil {
		j.record(ctx, enums.LogLevelError, "scheduled_order_failed", map[string]any{
			"scheduled_id": outcome.scheduledID,
			"reason":       outcome.err.Error(),
		})
		j.broadcast(ctx, realtime.Event{
			Type: enums.EventTypeScheduledOrderProcessed,
			Data: map[string]any{
				"scheduled_id": outcome.scheduledID,
				"status":       enums.ScheduledStatusError.String(),
				"reason":       outcome.err.Error(),
			},
		})
		return
	}

	j.record(ctx, enums.LogLevelInfo, "scheduled_order_released", map[string]any{
		"scheduled_id": outcome.scheduledID,
		"order_id":     outcome.order.ID,
	})
	j.broadcast(ctx, realtime.Event{
		Type: enums.EventTypeScheduledOrderProcessed,
		Data: map[string]any{
			"scheduled_id": outcome.scheduledID,
			"status":       enums.ScheduledStatusProcessed.String(),
			"order_id":     outcome.order.ID,
		},
	})
	j.broadcast(ctx, realtime.Event{
		Type: enums.EventTypeNewOrder,
		Data: map[string]any{
			"order_id":    outcome.order.ID,
			"status":      outcome.order.Status.String(),
			"merchant_id": outcome.order.MerchantID,
		},
	})
	if j.notifier != nil {
		orderID := outcome.order.ID
		j.notifier.Dispatch(ctx, integrations.OutboundEvent{
			Type:    enums.EventTypeNewOrder,
			OrderID: &orderID,
		})
	}
}

func (j *releaseSweepJob) broadcast(ctx context.Context, event realtime.Event) {
	if j.broadcaster == nil {
		return
	}
	j.broadcaster.Broadcast(ctx, event)
}

func (j *releaseSweepJob) record(ctx context.Context, level enums.LogLevel, action string, details map[string]any) {
	if j.recorder == nil {
		return
	}
	j.recorder.Record(ctx, syslog.Entry{
		Level:   level,
		Action:  action,
		Details: details,
	})
}
