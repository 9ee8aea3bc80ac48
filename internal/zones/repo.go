package zones

import (
	"context"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence for restricted zones.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, zone *models.RestrictedZone) (*models.RestrictedZone, error)
	Find(ctx context.Context, id int64) (*models.RestrictedZone, error)
	List(ctx context.Context) ([]models.RestrictedZone, error)
	ListActive(ctx context.Context) ([]models.RestrictedZone, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a zones repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, zone *models.RestrictedZone) (*models.RestrictedZone, error) {
	if err := r.db.WithContext(ctx).Create(zone).Error; err != nil {
		return nil, err
	}
	return zone, nil
}

func (r *repository) Find(ctx context.Context, id int64) (*models.RestrictedZone, error) {
	var zone models.RestrictedZone
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&zone).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *repository) List(ctx context.Context) ([]models.RestrictedZone, error) {
	var rows []models.RestrictedZone
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.RestrictedZone, error) {
	var rows []models.RestrictedZone
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.RestrictedZone{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.RestrictedZone{}, id).Error
}
