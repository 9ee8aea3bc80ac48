package drivers

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/entregave/dispatch-backend/internal/integrations"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/entregave/dispatch-backend/pkg/redis"
	"gorm.io/gorm"
)

type fakeDriverRepo struct {
	drivers       map[string]*models.Driver
	positions     []models.DriverLocationLog
	positionErr   error
	seenSinceRows []models.Driver
}

func newFakeDriverRepo() *fakeDriverRepo {
	return &fakeDriverRepo{drivers: map[string]*models.Driver{}}
}

func (f *fakeDriverRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeDriverRepo) Upsert(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	f.drivers[driver.ID] = driver
	return driver, nil
}

func (f *fakeDriverRepo) Find(ctx context.Context, id string) (*models.Driver, error) {
	driver, ok := f.drivers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return driver, nil
}

func (f *fakeDriverRepo) List(ctx context.Context) ([]models.Driver, error) { return nil, nil }

func (f *fakeDriverRepo) ListSeenSince(ctx context.Context, since time.Time) ([]models.Driver, error) {
	return f.seenSinceRows, nil
}

func (f *fakeDriverRepo) UpdateLastPosition(ctx context.Context, id string, lat, lng float64, batteryPct *float64, seenAt time.Time) error {
	if f.positionErr != nil {
		return f.positionErr
	}
	driver, ok := f.drivers[id]
	if !ok {
		driver = &models.Driver{ID: id, Name: id}
		f.drivers[id] = driver
	}
	driver.LastLat = &lat
	driver.LastLng = &lng
	driver.BatteryPct = batteryPct
	driver.LastSeenAt = &seenAt
	return nil
}

func (f *fakeDriverRepo) AppendLocationLog(ctx context.Context, log *models.DriverLocationLog) error {
	f.positions = append(f.positions, *log)
	return nil
}

func (f *fakeDriverRepo) DeleteLocationLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeCache struct {
	stored   map[string]redis.DriverPosition
	storeErr error
	cached   map[string]*redis.DriverPosition
	getErr   error
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: map[string]redis.DriverPosition{}, cached: map[string]*redis.DriverPosition{}}
}

func (f *fakeCache) StoreDriverPosition(ctx context.Context, driverID string, pos redis.DriverPosition, ttl time.Duration) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored[driverID] = pos
	return nil
}

func (f *fakeCache) GetDriverPosition(ctx context.Context, driverID string) (*redis.DriverPosition, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.cached[driverID], nil
}

type fakeBroadcaster struct {
	events []realtime.Event
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, event realtime.Event) {
	f.events = append(f.events, event)
}

type fakeNotifier struct {
	events []integrations.OutboundEvent
}

func (f *fakeNotifier) Dispatch(ctx context.Context, event integrations.OutboundEvent) {
	f.events = append(f.events, event)
}

func newDriversService(t *testing.T, repo Repository, cache PositionCache, broadcaster realtime.Broadcaster, notifier integrations.Notifier) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repo:        repo,
		Cache:       cache,
		Broadcaster: broadcaster,
		Notifier:    notifier,
		Now:         func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestReportLocation_FansOutAndPersists(t *testing.T) {
	repo := newFakeDriverRepo()
	cache := newFakeCache()
	broadcaster := &fakeBroadcaster{}
	notifier := &fakeNotifier{}
	svc := newDriversService(t, repo, cache, broadcaster, notifier)

	battery := 81.0
	err := svc.ReportLocation(context.Background(), LocationReport{
		DriverID:   "drv-1",
		Lat:        10.5,
		Lng:        -66.9,
		BatteryPct: &battery,
	})
	if err != nil {
		t.Fatalf("ReportLocation failed: %v", err)
	}

	if len(broadcaster.events) != 1 || broadcaster.events[0].Type != enums.EventTypeDriverLocationUpdate {
		t.Fatalf("expected one DRIVER_LOCATION_UPDATE broadcast, got %+v", broadcaster.events)
	}
	if _, ok := cache.stored["drv-1"]; !ok {
		t.Fatal("expected cached position")
	}
	driver := repo.drivers["drv-1"]
	if driver == nil || driver.LastLat == nil || *driver.LastLat != 10.5 {
		t.Fatalf("expected persisted last position, got %+v", driver)
	}
	if len(repo.positions) != 1 {
		t.Fatalf("expected one location log row, got %d", len(repo.positions))
	}
	if len(notifier.events) != 1 || notifier.events[0].DriverID == nil || *notifier.events[0].DriverID != "drv-1" {
		t.Fatalf("expected one outbound event for drv-1, got %+v", notifier.events)
	}
}

func TestReportLocation_CacheFailureDoesNotBlock(t *testing.T) {
	repo := newFakeDriverRepo()
	cache := newFakeCache()
	cache.storeErr = errors.New("redis down")
	svc := newDriversService(t, repo, cache, &fakeBroadcaster{}, &fakeNotifier{})

	err := svc.ReportLocation(context.Background(), LocationReport{DriverID: "drv-1", Lat: 1, Lng: 1})
	if err != nil {
		t.Fatalf("expected cache failure to be swallowed, got %v", err)
	}
	if repo.drivers["drv-1"] == nil {
		t.Fatal("expected position persisted despite cache failure")
	}
}

func TestReportLocation_RejectsBadCoordinates(t *testing.T) {
	svc := newDriversService(t, newFakeDriverRepo(), nil, nil, nil)
	err := svc.ReportLocation(context.Background(), LocationReport{DriverID: "drv-1", Lat: 91, Lng: 0})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestActiveDrivers_CacheOverlaysStoredPosition(t *testing.T) {
	repo := newFakeDriverRepo()
	storedLat, storedLng := 1.0, 1.0
	seen := time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)
	repo.seenSinceRows = []models.Driver{{
		ID:         "drv-1",
		Name:       "Ana",
		LastLat:    &storedLat,
		LastLng:    &storedLng,
		LastSeenAt: &seen,
	}}
	cache := newFakeCache()
	cache.cached["drv-1"] = &redis.DriverPosition{
		Latitude:   2.5,
		Longitude:  -3.5,
		ReportedAt: time.Date(2026, 9, 1, 9, 59, 0, 0, time.UTC),
	}
	svc := newDriversService(t, repo, cache, nil, nil)

	active, err := svc.ActiveDrivers(context.Background())
	if err != nil {
		t.Fatalf("ActiveDrivers failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected one active driver, got %d", len(active))
	}
	if active[0].Lat == nil || *active[0].Lat != 2.5 {
		t.Fatalf("expected cached latitude 2.5, got %+v", active[0].Lat)
	}
}

func TestActiveDrivers_CacheErrorFallsBackToStored(t *testing.T) {
	repo := newFakeDriverRepo()
	storedLat, storedLng := 4.0, 5.0
	seen := time.Date(2026, 9, 1, 9, 45, 0, 0, time.UTC)
	repo.seenSinceRows = []models.Driver{{
		ID:         "drv-2",
		Name:       "Luis",
		LastLat:    &storedLat,
		LastLng:    &storedLng,
		LastSeenAt: &seen,
	}}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	svc := newDriversService(t, repo, cache, nil, nil)

	active, err := svc.ActiveDrivers(context.Background())
	if err != nil {
		t.Fatalf("ActiveDrivers failed: %v", err)
	}
	if active[0].Lat == nil || *active[0].Lat != 4.0 {
		t.Fatalf("expected stored latitude 4.0, got %+v", active[0].Lat)
	}
}

func TestSetCommission_Validates(t *testing.T) {
	repo := newFakeDriverRepo()
	repo.drivers["drv-1"] = &models.Driver{ID: "drv-1", Name: "Ana"}
	svc := newDriversService(t, repo, nil, nil, nil)

	if _, err := svc.SetCommission(context.Background(), "drv-1", 140); err == nil {
		t.Fatal("expected validation error for out-of-range commission")
	}
	updated, err := svc.SetCommission(context.Background(), "drv-1", 12.5)
	if err != nil {
		t.Fatalf("SetCommission failed: %v", err)
	}
	if updated.CommissionPct == nil || *updated.CommissionPct != 12.5 {
		t.Fatalf("expected commission 12.5, got %+v", updated.CommissionPct)
	}
}
