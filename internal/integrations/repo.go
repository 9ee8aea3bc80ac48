package integrations

import (
	"context"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence for partner integration configs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cfg *models.IntegrationConfig) (*models.IntegrationConfig, error)
	Find(ctx context.Context, id int64) (*models.IntegrationConfig, error)
	List(ctx context.Context) ([]models.IntegrationConfig, error)
	ListActive(ctx context.Context) ([]models.IntegrationConfig, error)
	Update(ctx context.Context, cfg *models.IntegrationConfig) (*models.IntegrationConfig, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an integrations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cfg *models.IntegrationConfig) (*models.IntegrationConfig, error) {
	if err := r.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *repository) Find(ctx context.Context, id int64) (*models.IntegrationConfig, error) {
	var cfg models.IntegrationConfig
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) List(ctx context.Context) ([]models.IntegrationConfig, error) {
	var rows []models.IntegrationConfig
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.IntegrationConfig, error) {
	var rows []models.IntegrationConfig
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("external_id_prefix DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, cfg *models.IntegrationConfig) (*models.IntegrationConfig, error) {
	if err := r.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.IntegrationConfig{}).Error
}
