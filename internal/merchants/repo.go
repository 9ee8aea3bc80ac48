package merchants

import (
	"context"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence for merchants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, merchant *models.Merchant) (*models.Merchant, error)
	Find(ctx context.Context, id string) (*models.Merchant, error)
	List(ctx context.Context) ([]models.Merchant, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a merchants repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, merchant *models.Merchant) (*models.Merchant, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "address", "lat", "lng", "phone", "updated_at"}),
		}).
		Create(merchant).Error
	if err != nil {
		return nil, err
	}
	return merchant, nil
}

func (r *repository) Find(ctx context.Context, id string) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *repository) List(ctx context.Context) ([]models.Merchant, error) {
	var rows []models.Merchant
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Merchant{}).Error
}
