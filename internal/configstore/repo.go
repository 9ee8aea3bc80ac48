package configstore

import (
	"context"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence for runtime configuration documents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, key string) (*models.AppConfig, error)
	Upsert(ctx context.Context, row *models.AppConfig) (*models.AppConfig, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a config repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, key string) (*models.AppConfig, error) {
	var row models.AppConfig
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Upsert(ctx context.Context, row *models.AppConfig) (*models.AppConfig, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}
