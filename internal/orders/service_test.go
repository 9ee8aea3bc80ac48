package orders

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/entregave/dispatch-backend/internal/integrations"
	"github.com/entregave/dispatch-backend/internal/merchants"
	"github.com/entregave/dispatch-backend/internal/pricing"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/internal/zones"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/geo"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type fakeOrderRepo struct {
	orders  map[int64]*models.Order
	logs    []models.OrderStatusLog
	nextID  int64
	saveErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]*models.Order{}, nextID: 1}
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = f.nextID
	f.nextID++
	clone := *order
	f.orders[order.ID] = &clone
	return order, nil
}

func (f *fakeOrderRepo) Find(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrderRepo) FindForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return f.Find(ctx, id)
}

func (f *fakeOrderRepo) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range f.orders {
		rows = append(rows, *order)
	}
	return rows, nil
}

func (f *fakeOrderRepo) Save(ctx context.Context, order *models.Order) (*models.Order, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	clone := *order
	f.orders[order.ID] = &clone
	return order, nil
}

func (f *fakeOrderRepo) AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeOrderRepo) ListStatusLogs(ctx context.Context, orderID int64) ([]models.OrderStatusLog, error) {
	var rows []models.OrderStatusLog
	for _, log := range f.logs {
		if log.OrderID == orderID {
			rows = append(rows, log)
		}
	}
	return rows, nil
}

type fakeMerchantRepo struct {
	upserted []models.Merchant
}

func (f *fakeMerchantRepo) WithTx(tx *gorm.DB) merchants.Repository { return f }

func (f *fakeMerchantRepo) Upsert(ctx context.Context, merchant *models.Merchant) (*models.Merchant, error) {
	f.upserted = append(f.upserted, *merchant)
	return merchant, nil
}

func (f *fakeMerchantRepo) Find(ctx context.Context, id string) (*models.Merchant, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMerchantRepo) List(ctx context.Context) ([]models.Merchant, error) { return nil, nil }

func (f *fakeMerchantRepo) Delete(ctx context.Context, id string) error { return nil }

type fakeDriverStore struct {
	drivers map[string]*models.Driver
}

func (f *fakeDriverStore) Find(ctx context.Context, id string) (*models.Driver, error) {
	driver, ok := f.drivers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return driver, nil
}

type fakeZoneChecker struct {
	match *zones.Match
	err   error
}

func (f *fakeZoneChecker) CheckPoint(ctx context.Context, point geo.Point, now time.Time) (*zones.Match, error) {
	return f.match, f.err
}

type fakePricer struct {
	quote *pricing.Quote
	err   error
	calls int
}

func (f *fakePricer) Quote(ctx context.Context, origin, destination geo.Point, vehicleType string, cfg pricing.Config) (*pricing.Quote, error) {
	f.calls++
	return f.quote, f.err
}

type fakeConfigStore struct {
	value json.RawMessage
	err   error
}

func (f *fakeConfigStore) Get(ctx context.Context, key string) (*models.AppConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.AppConfig{Key: key, Value: f.value}, nil
}

type fakeOrderBroadcaster struct {
	events []realtime.Event
}

func (f *fakeOrderBroadcaster) Broadcast(ctx context.Context, event realtime.Event) {
	f.events = append(f.events, event)
}

type fakeOrderNotifier struct {
	events []integrations.OutboundEvent
}

func (f *fakeOrderNotifier) Dispatch(ctx context.Context, event integrations.OutboundEvent) {
	f.events = append(f.events, event)
}

type fakePush struct {
	sent []string
}

func (f *fakePush) Notify(ctx context.Context, token, title, body string, data map[string]string) {
	f.sent = append(f.sent, token)
}

type ordersFixture struct {
	repo        *fakeOrderRepo
	merchants   *fakeMerchantRepo
	drivers     *fakeDriverStore
	zones       *fakeZoneChecker
	pricer      *fakePricer
	configs     *fakeConfigStore
	broadcaster *fakeOrderBroadcaster
	notifier    *fakeOrderNotifier
	push        *fakePush
	svc         Service
}

func motoPricingDoc(t *testing.T) json.RawMessage {
	t.Helper()
	doc := map[string]any{
		"moto": map[string]any{
			"currency": "USD",
			"tiers": []map[string]any{
				{"name": "Base", "min_km": 0.0, "max_km": 100.0, "fixed_price": 3.0},
			},
		},
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal pricing doc: %v", err)
	}
	return encoded
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	cost := decimal.NewFromFloat(3)
	f := &ordersFixture{
		repo:      newFakeOrderRepo(),
		merchants: &fakeMerchantRepo{},
		drivers:   &fakeDriverStore{drivers: map[string]*models.Driver{}},
		zones:     &fakeZoneChecker{},
		pricer: &fakePricer{quote: &pricing.Quote{
			Cost:       cost,
			Currency:   "USD",
			DistanceKm: 4.2,
			Tier:       "Base",
		}},
		configs:     &fakeConfigStore{value: motoPricingDoc(t)},
		broadcaster: &fakeOrderBroadcaster{},
		notifier:    &fakeOrderNotifier{},
		push:        &fakePush{},
	}
	svc, err := NewService(ServiceParams{
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Tx:          fakeTx{},
		Repo:        f.repo,
		Merchants:   f.merchants,
		Drivers:     f.drivers,
		Zones:       f.zones,
		Pricer:      f.pricer,
		Configs:     f.configs,
		Broadcaster: f.broadcaster,
		Notifier:    f.notifier,
		Push:        f.push,
		Now:         func() time.Time { return time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func validCreateInput() CreateInput {
	return CreateInput{
		Description:     "documentos",
		DeliveryAddress: "Calle 10 #5",
		PickupLat:       10.49,
		PickupLng:       -66.90,
		DropoffLat:      10.51,
		DropoffLng:      -66.88,
		VehicleType:     enums.VehicleTypeMoto,
		MerchantID:      "mrc-1",
		MerchantName:    "Farmacia Central",
		CreatedBy:       "ops",
	}
}

func TestCreate_PricesAndFansOut(t *testing.T) {
	f := newOrdersFixture(t)

	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if order.Cost == nil || !order.Cost.Equal(decimal.NewFromFloat(3)) {
		t.Fatalf("expected cost 3, got %+v", order.Cost)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pendiente, got %s", order.Status)
	}
	if len(f.merchants.upserted) != 1 || f.merchants.upserted[0].ID != "mrc-1" {
		t.Fatalf("expected merchant upsert, got %+v", f.merchants.upserted)
	}
	if len(f.repo.logs) != 1 || f.repo.logs[0].Status != enums.OrderStatusPending {
		t.Fatalf("expected pendiente status log, got %+v", f.repo.logs)
	}
	if len(f.broadcaster.events) != 1 || f.broadcaster.events[0].Type != enums.EventTypeNewOrder {
		t.Fatalf("expected NEW_ORDER broadcast, got %+v", f.broadcaster.events)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Type != enums.EventTypeNewOrder {
		t.Fatalf("expected NEW_ORDER webhook event, got %+v", f.notifier.events)
	}
}

func TestCreate_RestrictedZoneBlocks(t *testing.T) {
	f := newOrdersFixture(t)
	f.zones.match = &zones.Match{ZoneID: 7, ZoneName: "Centro"}

	_, err := f.svc.Create(context.Background(), validCreateInput())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if len(f.repo.orders) != 0 {
		t.Fatal("expected no order persisted")
	}
}

func TestCreate_UnpricedVehicleStillCreates(t *testing.T) {
	f := newOrdersFixture(t)
	input := validCreateInput()
	input.VehicleType = enums.VehicleTypeVan

	order, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if order.Cost != nil {
		t.Fatalf("expected unpriced order, got cost %v", order.Cost)
	}
	if f.pricer.calls != 0 {
		t.Fatalf("expected no quote for unconfigured vehicle, got %d calls", f.pricer.calls)
	}
}

func TestUpdateStatus_AcceptedRequiresDriver(t *testing.T) {
	f := newOrdersFixture(t)
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = f.svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusAccepted, nil, "ops")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatus_AcceptedWithSuppliedDriver(t *testing.T) {
	f := newOrdersFixture(t)
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	driverID := "drv-9"
	updated, err := f.svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusAccepted, &driverID, "ops")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.DriverID == nil || *updated.DriverID != "drv-9" {
		t.Fatalf("expected supplied driver applied, got %v", updated.DriverID)
	}
	if updated.Status != enums.OrderStatusAccepted {
		t.Fatalf("status = %s, want aceptado", updated.Status)
	}
}

func TestUpdateStatus_SuppliedDriverReassigns(t *testing.T) {
	f := newOrdersFixture(t)
	f.drivers.drivers["drv-1"] = &models.Driver{ID: "drv-1", Name: "Ana"}
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.svc.Assign(context.Background(), order.ID, "drv-1", "ops"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	driverID := "drv-2"
	updated, err := f.svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivering, &driverID, "ops")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.DriverID == nil || *updated.DriverID != "drv-2" {
		t.Fatalf("expected reassignment to drv-2, got %v", updated.DriverID)
	}
}

func TestUpdateStatus_PendingClearsDriver(t *testing.T) {
	f := newOrdersFixture(t)
	f.drivers.drivers["drv-1"] = &models.Driver{ID: "drv-1", Name: "Ana"}
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.svc.Assign(context.Background(), order.ID, "drv-1", "ops"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	updated, err := f.svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusPending, nil, "ops")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.DriverID != nil {
		t.Fatalf("expected driver cleared, got %v", *updated.DriverID)
	}
}

func TestUpdateStatus_TerminalOrderConflicts(t *testing.T) {
	f := newOrdersFixture(t)
	f.drivers.drivers["drv-1"] = &models.Driver{ID: "drv-1", Name: "Ana"}
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusCanceled, nil, "ops"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err = f.svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivering, nil, "ops")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAssign_HappyPathNotifiesCourier(t *testing.T) {
	f := newOrdersFixture(t)
	token := "fcm-token"
	f.drivers.drivers["drv-1"] = &models.Driver{ID: "drv-1", Name: "Ana", FCMToken: &token}
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	assigned, err := f.svc.Assign(context.Background(), order.ID, "drv-1", "ops")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if assigned.Status != enums.OrderStatusAccepted {
		t.Fatalf("expected aceptado, got %s", assigned.Status)
	}
	if assigned.DriverID == nil || *assigned.DriverID != "drv-1" {
		t.Fatalf("expected driver drv-1, got %v", assigned.DriverID)
	}
	if len(f.push.sent) != 1 || f.push.sent[0] != "fcm-token" {
		t.Fatalf("expected push to courier, got %+v", f.push.sent)
	}
	found := false
	for _, event := range f.broadcaster.events {
		if event.Type == enums.EventTypeOrderAssigned {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ORDER_ASSIGNED broadcast, got %+v", f.broadcaster.events)
	}
}

func TestAssign_NonPendingConflicts(t *testing.T) {
	f := newOrdersFixture(t)
	f.drivers.drivers["drv-1"] = &models.Driver{ID: "drv-1", Name: "Ana"}
	f.drivers.drivers["drv-2"] = &models.Driver{ID: "drv-2", Name: "Luis"}
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.svc.Assign(context.Background(), order.ID, "drv-1", "ops"); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	_, err = f.svc.Assign(context.Background(), order.ID, "drv-2", "ops")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAssign_UnknownDriver(t *testing.T) {
	f := newOrdersFixture(t)
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = f.svc.Assign(context.Background(), order.ID, "ghost", "ops")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	f := newOrdersFixture(t)
	order, err := f.svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	address := "Nueva direccion 42"
	updated, err := f.svc.Update(context.Background(), order.ID, UpdateInput{DeliveryAddress: &address})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.DeliveryAddress != address {
		t.Fatalf("expected updated address, got %q", updated.DeliveryAddress)
	}
	if updated.Description != "documentos" {
		t.Fatalf("expected description untouched, got %q", updated.Description)
	}
}
