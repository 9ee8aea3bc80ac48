package apikeys

import (
	"context"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence for partner API keys.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, key *models.APIKey) (*models.APIKey, error)
	ListActiveByPrefix(ctx context.Context, prefix string) ([]models.APIKey, error)
	List(ctx context.Context) ([]models.APIKey, error)
	RevokeAllForClient(ctx context.Context, clientName string, revokedAt time.Time) error
	TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an API key repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, key *models.APIKey) (*models.APIKey, error) {
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, err
	}
	return key, nil
}

func (r *repository) ListActiveByPrefix(ctx context.Context, prefix string) ([]models.APIKey, error) {
	var rows []models.APIKey
	err := r.db.WithContext(ctx).
		Where("prefix = ? AND active = ?", prefix, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) List(ctx context.Context) ([]models.APIKey, error) {
	var rows []models.APIKey
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) RevokeAllForClient(ctx context.Context, clientName string, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("client_name = ? AND active = ?", clientName, true).
		Updates(map[string]any{"active": false, "revoked_at": revokedAt}).Error
}

func (r *repository) TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", usedAt).Error
}
