// Package drivers tracks courier profiles and their realtime positions.
package drivers

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

const activeDriverWindow = 2 * time.Hour

// PositionCache is the courier position surface of the redis client.
type PositionCache interface {
	StoreDriverPosition(ctx context.Context, driverID string, pos redis.DriverPosition, ttl time.Duration) error
	GetDriverPosition(ctx context.Context, driverID string) (*redis.DriverPosition, error)
}

// Service exposes courier operations.
type Service interface {
	ReportLocation(ctx context.Context, input LocationReport) error
	UpsertProfile(ctx context.Context, input ProfileInput) (*models.Driver, error)
	SetCommission(ctx context.Context, driverID string, pct float64) (*models.Driver, error)
	Get(ctx context.Context, id string) (*models.Driver, error)
	List(ctx context.Context) ([]models.Driver, error)
	ActiveDrivers(ctx context.Context) ([]ActiveDriver, error)
}

// LocationReport is one position ping from a courier device.
type LocationReport struct {
	DriverID   string
	Lat        float64
	Lng        float64
	BatteryPct *float64
}

// ProfileInput carries courier profile fields.
type ProfileInput struct {
	ID            string
	Name          string
	Status        *string
	CommissionPct *float64
	FCMToken      *string
}

// ActiveDriver is a recently seen courier with its freshest known position.
type ActiveDriver struct {
	Driver     models.Driver
	Lat        *float64
	Lng        *float64
	BatteryPct *float64
	ReportedAt *time.Time
}

// ServiceParams wires the drivers service dependencies.
type ServiceParams struct {
	Logger      *logger.Logger
	Repo        Repository
	Cache       PositionCache
	Broadcaster realtime.Broadcaster
	Notifier    integrations.Notifier
	PositionTTL time.Duration
	Now         func() time.Time
}

type service struct {
	logg        *logger.Logger
	repo        Repository
	cache       PositionCache
	broadcaster realtime.Broadcaster
	notifier    integrations.Notifier
	positionTTL time.Duration
	now         func() time.Time
}

// NewService validates params and builds the drivers service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drivers service requires a logger")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drivers service requires a repository")
	}
	ttl := params.PositionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		logg:        params.Logger,
		repo:        params.Repo,
		cache:       params.Cache,
		broadcaster: params.Broadcaster,
		notifier:    params.Notifier,
		positionTTL: ttl,
		now:         now,
	}, nil
}

// ReportLocation fans a position ping out to dashboards, caches it, persists
// the last-known fields and trail, and notifies integrations. The broadcast
// happens first so a storage hiccup never delays the live map.
func (s *service) ReportLocation(ctx context.Context, input LocationReport) error {
	driverID := strings.TrimSpace(input.DriverID)
	if driverID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	if input.Lat < -90 || input.Lat > 90 || input.Lng < -180 || input.Lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	reportedAt := s.now().UTC()
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, realtime.Event{
			Type: enums.EventTypeDriverLocationUpdate,
			Data: map[string]any{
				"driver_id":   driverID,
				"lat":         input.Lat,
				"lng":         input.Lng,
				"battery_pct": input.BatteryPct,
				"reported_at": reportedAt.Format(time.RFC3339),
			},
		})
	}

	if s.cache != nil {
		err := s.cache.StoreDriverPosition(ctx, driverID, redis.DriverPosition{
			Latitude:   input.Lat,
			Longitude:  input.Lng,
			BatteryPct: input.BatteryPct,
			ReportedAt: reportedAt,
		}, s.positionTTL)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("cache driver position for %s: %v", driverID, err))
		}
	}

	if err := s.repo.UpdateLastPosition(ctx, driverID, input.Lat, input.Lng, input.BatteryPct, reportedAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to persist driver position")
	}
	if err := s.repo.AppendLocationLog(ctx, &models.DriverLocationLog{
		DriverID:   driverID,
		Lat:        input.Lat,
		Lng:        input.Lng,
		BatteryPct: input.BatteryPct,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to append driver location log")
	}

	if s.notifier != nil {
		lat, lng := input.Lat, input.Lng
		s.notifier.Dispatch(ctx, integrations.OutboundEvent{
			Type:       enums.EventTypeDriverLocationUpdate,
			DriverID:   &driverID,
			Lat:        &lat,
			Lng:        &lng,
			BatteryPct: input.BatteryPct,
		})
	}
	return nil
}

func (s *service) UpsertProfile(ctx context.Context, input ProfileInput) (*models.Driver, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver name is required")
	}
	driver := &models.Driver{
		ID:            id,
		Name:          name,
		CommissionPct: input.CommissionPct,
		FCMToken:      input.FCMToken,
	}
	if input.Status != nil {
		driver.Status = *input.Status
	}
	saved, err := s.repo.Upsert(ctx, driver)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to upsert driver")
	}
	return saved, nil
}

func (s *service) SetCommission(ctx context.Context, driverID string, pct float64) (*models.Driver, error) {
	if pct < 0 || pct > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission must be between 0 and 100")
	}
	driver, err := s.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}
	driver.CommissionPct = &pct
	saved, err := s.repo.Upsert(ctx, driver)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update commission")
	}
	return saved, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Driver, error) {
	driver, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load driver")
	}
	return driver, nil
}

func (s *service) List(ctx context.Context) ([]models.Driver, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list drivers")
	}
	return rows, nil
}

// ActiveDrivers returns couriers seen in the last two hours. Cached redis
// positions override the database snapshot when readable; cache errors fall
// back to the stored values.
func (s *service) ActiveDrivers(ctx context.Context) ([]ActiveDriver, error) {
	since := s.now().UTC().Add(-activeDriverWindow)
	rows, err := s.repo.ListSeenSince(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list active drivers")
	}

	result := make([]ActiveDriver, 0, len(rows))
	for _, row := range rows {
		entry := ActiveDriver{
			Driver:     row,
			Lat:        row.LastLat,
			Lng:        row.LastLng,
			BatteryPct: row.BatteryPct,
			ReportedAt: row.LastSeenAt,
		}
		if s.cache != nil {
			cached, cerr := s.cache.GetDriverPosition(ctx, row.ID)
			if cerr != nil {
				s.logg.Warn(ctx, fmt.Sprintf("read cached position for %s: %v", row.ID, cerr))
			} else if cached != nil {
				lat, lng := cached.Latitude, cached.Longitude
				reportedAt := cached.ReportedAt
				entry.Lat = &lat
				entry.Lng = &lng
				entry.ReportedAt = &reportedAt
				if cached.BatteryPct != nil {
					entry.BatteryPct = cached.BatteryPct
				}
			}
		}
		result = append(result, entry)
	}
	return result, nil
}
