package drivers

import (
	"context"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence for couriers and their location trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, driver *models.Driver) (*models.Driver, error)
	Find(ctx context.Context, id string) (*models.Driver, error)
	List(ctx context.Context) ([]models.Driver, error)
	ListSeenSince(ctx context.Context, since time.Time) ([]models.Driver, error)
	UpdateLastPosition(ctx context.Context, id string, lat, lng float64, batteryPct *float64, seenAt time.Time) error
	AppendLocationLog(ctx context.Context, log *models.DriverLocationLog) error
	DeleteLocationLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a drivers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "status", "commission_pct", "fcm_token", "updated_at"}),
		}).
		Create(driver).Error
	if err != nil {
		return nil, err
	}
	return driver, nil
}

func (r *repository) Find(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) List(ctx context.Context) ([]models.Driver, error) {
	var rows []models.Driver
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListSeenSince(ctx context.Context, since time.Time) ([]models.Driver, error) {
	var rows []models.Driver
	err := r.db.WithContext(ctx).
		Where("last_seen_at IS NOT NULL AND last_seen_at >= ?", since).
		Order("last_seen_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateLastPosition writes the courier's last-known location, creating the
// row when a position report arrives before the profile does.
func (r *repository) UpdateLastPosition(ctx context.Context, id string, lat, lng float64, batteryPct *float64, seenAt time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_lat", "last_lng", "battery_pct", "last_seen_at", "updated_at",
			}),
		}).
		Create(&models.Driver{
			ID:         id,
			Name:       id,
			LastLat:    &lat,
			LastLng:    &lng,
			BatteryPct: batteryPct,
			LastSeenAt: &seenAt,
		}).Error
}

func (r *repository) AppendLocationLog(ctx context.Context, log *models.DriverLocationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) DeleteLocationLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recorded_at < ?", cutoff).
		Delete(&models.DriverLocationLog{})
	return result.RowsAffected, result.Error
}
