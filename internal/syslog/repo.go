package syslog

import (
	"context"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence for the operational audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.SystemLog) (*models.SystemLog, error)
	List(ctx context.Context, filter ListFilter) ([]models.SystemLog, error)
}

// ListFilter narrows the audit trail listing.
type ListFilter struct {
	Level  string
	Action string
	Since  *time.Time
	Limit  int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a system log repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.SystemLog) (*models.SystemLog, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.SystemLog, error) {
	query := r.db.WithContext(ctx).Model(&models.SystemLog{})
	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.SystemLog
	err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
