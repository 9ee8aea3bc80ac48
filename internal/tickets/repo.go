package tickets

import (
	"context"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence for incident tickets and their messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	Find(ctx context.Context, id int64) (*models.Ticket, error)
	FindForUpdate(ctx context.Context, id int64) (*models.Ticket, error)
	FindOpenByOrder(ctx context.Context, orderID int64) (*models.Ticket, error)
	ListActive(ctx context.Context) ([]models.Ticket, error)
	Save(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	AddMessage(ctx context.Context, message *models.TicketMessage) (*models.TicketMessage, error)
	ListMessages(ctx context.Context, ticketID int64) ([]models.TicketMessage, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tickets repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *repository) Find(ctx context.Context, id int64) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindForUpdate row-locks the ticket. Must run inside a transaction.
func (r *repository) FindForUpdate(ctx context.Context, id int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) FindOpenByOrder(ctx context.Context, orderID int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status NOT IN ?", orderID,
			[]enums.TicketStatus{enums.TicketStatusResolved, enums.TicketStatusClosed}).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Ticket, error) {
	var rows []models.Ticket
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []enums.TicketStatus{enums.TicketStatusResolved, enums.TicketStatusClosed}).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Save(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if err := r.db.WithContext(ctx).Save(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *repository) AddMessage(ctx context.Context, message *models.TicketMessage) (*models.TicketMessage, error) {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (r *repository) ListMessages(ctx context.Context, ticketID int64) ([]models.TicketMessage, error) {
	var rows []models.TicketMessage
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
