package orders

import (
	"context"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence for orders and their status trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	Find(ctx context.Context, id int64) (*models.Order, error)
	FindForUpdate(ctx context.Context, id int64) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	Save(ctx context.Context, order *models.Order) (*models.Order, error)
	AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error
	ListStatusLogs(ctx context.Context, orderID int64) ([]models.OrderStatusLog, error)
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status     *enums.OrderStatus
	DriverID   *string
	MerchantID *string
	From       *time.Time
	To         *time.Time
	Limit      int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) Find(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindForUpdate row-locks the order. Must run inside a transaction.
func (r *repository) FindForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.MerchantID != nil {
		query = query.Where("merchant_id = ?", *filter.MerchantID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	if err := query.Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Save(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListStatusLogs(ctx context.Context, orderID int64) ([]models.OrderStatusLog, error) {
	var rows []models.OrderStatusLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
