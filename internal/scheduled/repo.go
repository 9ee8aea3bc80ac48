package scheduled

import (
	"context"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence for scheduled order rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.ScheduledOrder) (*models.ScheduledOrder, error)
	Find(ctx context.Context, id int64) (*models.ScheduledOrder, error)
	List(ctx context.Context, filter ListFilter) ([]models.ScheduledOrder, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledOrder, error)
	MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error
	MarkError(ctx context.Context, id int64, reason string, processedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

// ListFilter narrows scheduled order listings.
type ListFilter struct {
	Status *enums.ScheduledStatus
	Limit  int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a scheduled orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.ScheduledOrder) (*models.ScheduledOrder, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repository) Find(ctx context.Context, id int64) (*models.ScheduledOrder, error) {
	var row models.ScheduledOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.ScheduledOrder, error) {
	query := r.db.WithContext(ctx).Order("release_at ASC")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	var rows []models.ScheduledOrder
	if err := query.Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ClaimDue locks due pending rows with FOR UPDATE SKIP LOCKED. Rows a
// concurrent sweep already holds are skipped rather than waited on, so two
// workers never process the same row. Must run inside a transaction.
func (r *repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.ScheduledOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND release_at <= ?", enums.ScheduledStatusPending, now).
		Order("release_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ScheduledOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.ScheduledStatusProcessed,
			"processed_at": processedAt,
			"last_error":   nil,
		}).Error
}

func (r *repository) MarkError(ctx context.Context, id int64, reason string, processedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ScheduledOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.ScheduledStatusError,
			"processed_at": processedAt,
			"last_error":   reason,
		}).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ScheduledOrder{}).Error
}
