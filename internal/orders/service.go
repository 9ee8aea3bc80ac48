// Package orders owns the delivery order lifecycle from intake to handoff.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entregave/dispatch-backend/internal/integrations"
	"github.com/entregave/dispatch-backend/internal/merchants"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/internal/zones"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/geo"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"gorm.io/gorm"

	"github.com/entregave/dispatch-backend/internal/pricing"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ZoneChecker reports whether a point falls in a restricted zone right now.
type ZoneChecker interface {
	CheckPoint(ctx context.Context, point geo.Point, now time.Time) (*zones.Match, error)
}

// Pricer quotes a delivery leg for a vehicle class.
type Pricer interface {
	Quote(ctx context.Context, origin, destination geo.Point, vehicleType string, cfg pricing.Config) (*pricing.Quote, error)
}

// ConfigStore reads runtime configuration documents.
type ConfigStore interface {
	Get(ctx context.Context, key string) (*models.AppConfig, error)
}

// DriverStore is the courier surface the order lifecycle needs.
type DriverStore interface {
	Find(ctx context.Context, id string) (*models.Driver, error)
}

// PushSender notifies a courier device. Implementations are best-effort.
type PushSender interface {
	Notify(ctx context.Context, token, title, body string, data map[string]string)
}

// Service exposes order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus, driverID *string, actor string) (*models.Order, error)
	Assign(ctx context.Context, orderID int64, driverID, actor string) (*models.Order, error)
	Update(ctx context.Context, orderID int64, input UpdateInput) (*models.Order, error)
	Get(ctx context.Context, orderID int64) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	History(ctx context.Context, orderID int64) ([]models.OrderStatusLog, error)
}

// CreateInput carries a new order request.
type CreateInput struct {
	Description     string
	DeliveryAddress string
	PickupLat       float64
	PickupLng       float64
	DropoffLat      float64
	DropoffLng      float64
	VehicleType     enums.VehicleType
	Details         *string
	PickupPhone     *string
	DropoffPhone    *string
	MapsLink        *string
	MerchantID      string
	MerchantName    string
	MerchantPhone   *string
	MerchantAddress *string
	CreatedBy       string
	ExternalID      *string
}

// UpdateInput is a partial update of mutable order fields. Nil fields are
// left untouched.
type UpdateInput struct {
	Description     *string
	DeliveryAddress *string
	Details         *string
	PickupPhone     *string
	DropoffPhone    *string
	MapsLink        *string
}

// ServiceParams wires the orders service dependencies.
type ServiceParams struct {
	Logger      *logger.Logger
	Tx          TxRunner
	Repo        Repository
	Merchants   merchants.Repository
	Drivers     DriverStore
	Zones       ZoneChecker
	Pricer      Pricer
	Configs     ConfigStore
	Recorder    syslog.Recorder
	Broadcaster realtime.Broadcaster
	Notifier    integrations.Notifier
	Push        PushSender
	Now         func() time.Time
}

type service struct {
	logg        *logger.Logger
	tx          TxRunner
	repo        Repository
	merchants   merchants.Repository
	drivers     DriverStore
	zones       ZoneChecker
	pricer      Pricer
	configs     ConfigStore
	recorder    syslog.Recorder
	broadcaster realtime.Broadcaster
	notifier    integrations.Notifier
	push        PushSender
	now         func() time.Time
}

// NewService validates params and builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service requires a logger")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service requires a transaction runner")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service requires a repository")
	}
	if params.Merchants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service requires a merchants repository")
	}
	if params.Drivers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service requires a driver store")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		logg:        params.Logger,
		tx:          params.Tx,
		repo:        params.Repo,
		merchants:   params.Merchants,
		drivers:     params.Drivers,
		zones:       params.Zones,
		pricer:      params.Pricer,
		configs:     params.Configs,
		recorder:    params.Recorder,
		broadcaster: params.Broadcaster,
		notifier:    params.Notifier,
		push:        params.Push,
		now:         now,
	}, nil
}

// Create validates the request, gates the dropoff against restricted zones,
// prices the leg, and persists the order with its merchant in one
// transaction. Fanout happens after commit.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	dropoff := geo.Point{Lat: input.DropoffLat, Lng: input.DropoffLng}
	if s.zones != nil {
		match, err := s.zones.CheckPoint(ctx, dropoff, s.now())
		if err != nil {
			return nil, err
		}
		if match != nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden,
				fmt.Sprintf("delivery point falls inside restricted zone %q", match.ZoneName)).
				WithDetails(map[string]any{"zone_id": match.ZoneID, "zone_name": match.ZoneName})
		}
	}

	order := &models.Order{
		Description:     strings.TrimSpace(input.Description),
		DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
		PickupLat:       input.PickupLat,
		PickupLng:       input.PickupLng,
		DropoffLat:      input.DropoffLat,
		DropoffLng:      input.DropoffLng,
		VehicleType:     input.VehicleType,
		Details:         input.Details,
		PickupPhone:     input.PickupPhone,
		DropoffPhone:    input.DropoffPhone,
		MapsLink:        input.MapsLink,
		MerchantID:      strings.TrimSpace(input.MerchantID),
		Currency:        "USD",
		Status:          enums.OrderStatusPending,
		CreatedBy:       input.CreatedBy,
		ExternalID:      input.ExternalID,
	}

	s.applyQuote(ctx, order)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.merchants.WithTx(tx).Upsert(ctx, &models.Merchant{
			ID:      order.MerchantID,
			Name:    strings.TrimSpace(input.MerchantName),
			Address: input.MerchantAddress,
			Phone:   input.MerchantPhone,
			Lat:     &input.PickupLat,
			Lng:     &input.PickupLng,
		}); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return err
		}
		return repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID: order.ID,
			Status:  enums.OrderStatusPending,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create order")
	}

	s.record(ctx, enums.LogLevelInfo, "order_created", input.CreatedBy, map[string]any{
		"order_id":    order.ID,
		"merchant_id": order.MerchantID,
	})
	s.broadcastOrder(ctx, enums.EventTypeNewOrder, order)
	s.notify(ctx, enums.EventTypeNewOrder, order)
	return order, nil
}

// applyQuote prices the leg when the vehicle class is configured. A missing
// pricing document or vehicle entry leaves the order unpriced.
func (s *service) applyQuote(ctx context.Context, order *models.Order) {
	if s.pricer == nil || s.configs == nil {
		return
	}
	cfg, err := s.loadPricingConfig(ctx)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("pricing config unavailable: %v", err))
		return
	}
	if _, ok := cfg[order.VehicleType.String()]; !ok {
		s.logg.Warn(ctx, fmt.Sprintf("vehicle type %q has no pricing entry", order.VehicleType))
		return
	}
	quote, err := s.pricer.Quote(ctx,
		geo.Point{Lat: order.PickupLat, Lng: order.PickupLng},
		geo.Point{Lat: order.DropoffLat, Lng: order.DropoffLng},
		order.VehicleType.String(), cfg)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("pricing failed for order intake: %v", err))
		return
	}
	cost := quote.Cost
	distance := quote.DistanceKm
	order.Cost = &cost
	order.Currency = quote.Currency
	order.DistanceKm = &distance
}

func (s *service) loadPricingConfig(ctx context.Context) (pricing.Config, error) {
	row, err := s.configs.Get(ctx, pricing.ConfigKey)
	if err != nil {
		return nil, err
	}
	return pricing.ParseConfig(row.Value)
}

// UpdateStatus moves an order through its lifecycle under a row lock.
// Returning to pendiente unassigns the courier; aceptado requires an
// existing or supplied courier. A supplied driverID reassigns the order
// alongside any other transition.
func (s *service) UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus, driverID *string, actor string) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", status))
	}
	if driverID != nil {
		trimmed := strings.TrimSpace(*driverID)
		if trimmed == "" {
			driverID = nil
		} else {
			driverID = &trimmed
		}
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if row.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is already %s", row.Status))
		}
		switch {
		case status == enums.OrderStatusPending:
			row.DriverID = nil
		case status == enums.OrderStatusAccepted && row.DriverID == nil && driverID == nil:
			return pkgerrors.New(pkgerrors.CodeValidation, "order cannot be accepted without a driver")
		case driverID != nil:
			row.DriverID = driverID
		}
		row.Status = status
		if _, err := repo.Save(ctx, row); err != nil {
			return err
		}
		if err := s.appendStatusLog(ctx, repo, row, status); err != nil {
			return err
		}
		order = row
		return nil
	})
	if err != nil {
		return nil, s.normalizeTxErr(err, "failed to update order status")
	}

	s.record(ctx, enums.LogLevelInfo, "order_status_updated", actor, map[string]any{
		"order_id": order.ID,
		"status":   order.Status.String(),
	})
	s.broadcastOrder(ctx, enums.EventTypeOrderStatusUpdate, order)
	s.notify(ctx, enums.EventTypeOrderStatusUpdate, order)
	return order, nil
}

// Assign hands a pending order to a courier and moves it to aceptado.
func (s *service) Assign(ctx context.Context, orderID int64, driverID, actor string) (*models.Order, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	driver, err := s.drivers.Find(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load driver")
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if row.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is %s, only pending orders can be assigned", row.Status))
		}
		row.DriverID = &driverID
		row.Status = enums.OrderStatusAccepted
		if _, err := repo.Save(ctx, row); err != nil {
			return err
		}
		if err := s.appendStatusLog(ctx, repo, row, enums.OrderStatusAccepted); err != nil {
			return err
		}
		order = row
		return nil
	})
	if err != nil {
		return nil, s.normalizeTxErr(err, "failed to assign order")
	}

	s.record(ctx, enums.LogLevelInfo, "order_assigned", actor, map[string]any{
		"order_id":  order.ID,
		"driver_id": driverID,
	})
	s.broadcastOrder(ctx, enums.EventTypeOrderAssigned, order)
	s.notify(ctx, enums.EventTypeOrderAssigned, order)
	if s.push != nil && driver.FCMToken != nil {
		s.push.Notify(ctx, *driver.FCMToken, "Nuevo pedido asignado",
			fmt.Sprintf("Pedido #%d: %s", order.ID, order.Description),
			map[string]string{"order_id": fmt.Sprintf("%d", order.ID)})
	}
	return order, nil
}

func (s *service) Update(ctx context.Context, orderID int64, input UpdateInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if input.Description != nil {
			row.Description = strings.TrimSpace(*input.Description)
		}
		if input.DeliveryAddress != nil {
			row.DeliveryAddress = strings.TrimSpace(*input.DeliveryAddress)
		}
		if input.Details != nil {
			row.Details = input.Details
		}
		if input.PickupPhone != nil {
			row.PickupPhone = input.PickupPhone
		}
		if input.DropoffPhone != nil {
			row.DropoffPhone = input.DropoffPhone
		}
		if input.MapsLink != nil {
			row.MapsLink = input.MapsLink
		}
		order, err = repo.Save(ctx, row)
		return err
	})
	if err != nil {
		return nil, s.normalizeTxErr(err, "failed to update order")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list orders")
	}
	return rows, nil
}

func (s *service) History(ctx context.Context, orderID int64) ([]models.OrderStatusLog, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListStatusLogs(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order history")
	}
	return rows, nil
}

// appendStatusLog captures the courier's last known position alongside the
// transition. Position lookup failures degrade to a bare log row.
func (s *service) appendStatusLog(ctx context.Context, repo Repository, order *models.Order, status enums.OrderStatus) error {
	entry := &models.OrderStatusLog{
		OrderID:  order.ID,
		Status:   status,
		DriverID: order.DriverID,
	}
	if order.DriverID != nil {
		if driver, err := s.drivers.Find(ctx, *order.DriverID); err == nil {
			entry.DriverLat = driver.LastLat
			entry.DriverLng = driver.LastLng
		}
	}
	return repo.AppendStatusLog(ctx, entry)
}

func (s *service) broadcastOrder(ctx context.Context, eventType enums.EventType, order *models.Order) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(ctx, realtime.Event{
		Type: eventType,
		Data: map[string]any{
			"order_id":    order.ID,
			"status":      order.Status.String(),
			"driver_id":   order.DriverID,
			"merchant_id": order.MerchantID,
		},
	})
}

func (s *service) notify(ctx context.Context, eventType enums.EventType, order *models.Order) {
	if s.notifier == nil {
		return
	}
	orderID := order.ID
	s.notifier.Dispatch(ctx, integrations.OutboundEvent{
		Type:     eventType,
		OrderID:  &orderID,
		DriverID: order.DriverID,
	})
}

func (s *service) record(ctx context.Context, level enums.LogLevel, action, actor string, details map[string]any) {
	if s.recorder == nil {
		return
	}
	var actorPtr *string
	if actor != "" {
		actorPtr = &actor
	}
	s.recorder.Record(ctx, syslog.Entry{
		Level:   level,
		Action:  action,
		Actor:   actorPtr,
		Details: details,
	})
}

// normalizeTxErr keeps coded errors raised inside the transaction intact and
// wraps raw database failures.
func (s *service) normalizeTxErr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if appErr := pkgerrors.As(err); appErr != nil {
		return appErr
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}

func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if !input.VehicleType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown vehicle type %q", input.VehicleType))
	}
	if strings.TrimSpace(input.MerchantID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	if strings.TrimSpace(input.MerchantName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant name is required")
	}
	if strings.TrimSpace(input.CreatedBy) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "created by is required")
	}
	for _, coord := range []struct {
		value    float64
		min, max float64
	}{
		{input.PickupLat, -90, 90},
		{input.DropoffLat, -90, 90},
		{input.PickupLng, -180, 180},
		{input.DropoffLng, -180, 180},
	} {
		if coord.value < coord.min || coord.value > coord.max {
			return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
		}
	}
	return nil
}
