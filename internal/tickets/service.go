// Package tickets handles courier-raised incidents that pause an order's
// delivery lifecycle.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entregave/dispatch-backend/internal/orders"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"gorm.io/gorm"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes ticket operations.
type Service interface {
	Open(ctx context.Context, orderID int64, driverID, reason string) (*models.Ticket, error)
	SetStatus(ctx context.Context, ticketID int64, status enums.TicketStatus, actor string) (*models.Ticket, error)
	AddMessage(ctx context.Context, input MessageInput) (*models.TicketMessage, error)
	Get(ctx context.Context, ticketID int64) (*models.Ticket, error)
	ListActive(ctx context.Context) ([]models.Ticket, error)
	ListMessages(ctx context.Context, ticketID int64) ([]models.TicketMessage, error)
}

// MessageInput is one conversation entry for an open ticket.
type MessageInput struct {
	TicketID      int64
	Sender        enums.MessageSender
	Body          *string
	AttachmentRef *string
}

// ServiceParams wires the tickets service dependencies.
type ServiceParams struct {
	Logger      *logger.Logger
	Tx          TxRunner
	Repo        Repository
	Orders      orders.Repository
	Recorder    syslog.Recorder
	Broadcaster realtime.Broadcaster
}

type service struct {
	logg        *logger.Logger
	tx          TxRunner
	repo        Repository
	orders      orders.Repository
	recorder    syslog.Recorder
	broadcaster realtime.Broadcaster
}

// NewService validates params and builds the tickets service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tickets service requires a logger")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tickets service requires a transaction runner")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tickets service requires a repository")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tickets service requires an orders repository")
	}
	return &service{
		logg:        params.Logger,
		tx:          params.Tx,
		repo:        params.Repo,
		orders:      params.Orders,
		recorder:    params.Recorder,
		broadcaster: params.Broadcaster,
	}, nil
}

// Open raises an incident on an active order. The order's current status is
// snapshotted before moving it to con_novedad so closing the ticket can
// restore it.
func (s *service) Open(ctx context.Context, orderID int64, driverID, reason string) (*models.Ticket, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a reason is required to open a ticket")
	}

	var ticket *models.Ticket
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		row, err := ordersRepo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if row.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is already %s", row.Status))
		}
		if row.DriverID == nil || *row.DriverID != driverID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned driver can open a ticket")
		}
		if row.HasOpenTicket {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already has an open ticket")
		}

		if row.Status != enums.OrderStatusIncident {
			prior := row.Status.String()
			row.PriorStatus = &prior
		}
		row.Status = enums.OrderStatusIncident
		row.HasOpenTicket = true
		if _, err := ordersRepo.Save(ctx, row); err != nil {
			return err
		}
		if err := ordersRepo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:  row.ID,
			Status:   enums.OrderStatusIncident,
			DriverID: row.DriverID,
		}); err != nil {
			return err
		}

		created, err := s.repo.WithTx(tx).Create(ctx, &models.Ticket{
			OrderID:  row.ID,
			DriverID: driverID,
			Reason:   reason,
			Status:   enums.TicketStatusOpen,
		})
		if err != nil {
			return err
		}
		ticket = created
		order = row
		return nil
	})
	if err != nil {
		return nil, s.normalizeTxErr(err, "failed to open ticket")
	}

	s.record(ctx, "ticket_opened", driverID, map[string]any{
		"ticket_id": ticket.ID,
		"order_id":  order.ID,
	})
	s.broadcastTicket(ctx, enums.EventTypeTicketOpened, ticket)
	s.broadcastOrderStatus(ctx, order)
	return ticket, nil
}

// SetStatus advances a ticket. Moving to resuelto or cerrado restores the
// order's snapshotted status, defaulting to aceptado when no snapshot exists.
func (s *service) SetStatus(ctx context.Context, ticketID int64, status enums.TicketStatus, actor string) (*models.Ticket, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown ticket status %q", status))
	}

	var ticket *models.Ticket
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if row.Status.IsFinal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("ticket is already %s", row.Status))
		}
		row.Status = status
		if _, err := repo.Save(ctx, row); err != nil {
			return err
		}
		ticket = row

		if !status.IsFinal() {
			return nil
		}
		ordersRepo := s.orders.WithTx(tx)
		orderRow, err := ordersRepo.FindForUpdate(ctx, row.OrderID)
		if err != nil {
			return err
		}
		restored := enums.OrderStatusAccepted
		if orderRow.PriorStatus != nil {
			if parsed, perr := enums.ParseOrderStatus(*orderRow.PriorStatus); perr == nil {
				restored = parsed
			}
		}
		orderRow.Status = restored
		orderRow.PriorStatus = nil
		orderRow.HasOpenTicket = false
		if _, err := ordersRepo.Save(ctx, orderRow); err != nil {
			return err
		}
		if err := ordersRepo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:  orderRow.ID,
			Status:   restored,
			DriverID: orderRow.DriverID,
		}); err != nil {
			return err
		}
		order = orderRow
		return nil
	})
	if err != nil {
		return nil, s.normalizeTxErr(err, "failed to update ticket status")
	}

	s.record(ctx, "ticket_status_updated", actor, map[string]any{
		"ticket_id": ticket.ID,
		"status":    ticket.Status.String(),
	})
	s.broadcastTicket(ctx, enums.EventTypeTicketStatusUpdate, ticket)
	if order != nil {
		s.broadcastOrderStatus(ctx, order)
	}
	return ticket, nil
}

// AddMessage appends to the ticket conversation. Finalized tickets reject
// new messages.
func (s *service) AddMessage(ctx context.Context, input MessageInput) (*models.TicketMessage, error) {
	if !input.Sender.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown message sender")
	}
	hasBody := input.Body != nil && strings.TrimSpace(*input.Body) != ""
	if !hasBody && input.AttachmentRef == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a message needs a body or an attachment")
	}

	ticket, err := s.Get(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsFinal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("ticket is %s and no longer accepts messages", ticket.Status))
	}

	message, err := s.repo.AddMessage(ctx, &models.TicketMessage{
		TicketID:      input.TicketID,
		Sender:        input.Sender,
		Body:          input.Body,
		AttachmentRef: input.AttachmentRef,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to store ticket message")
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, realtime.Event{
			Type: enums.EventTypeNewTicketMessage,
			Data: map[string]any{
				"ticket_id":  message.TicketID,
				"message_id": message.ID,
				"sender":     message.Sender.String(),
			},
		})
	}
	return message, nil
}

func (s *service) Get(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	ticket, err := s.repo.Find(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load ticket")
	}
	return ticket, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list tickets")
	}
	return rows, nil
}

func (s *service) ListMessages(ctx context.Context, ticketID int64) ([]models.TicketMessage, error) {
	if _, err := s.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMessages(ctx, ticketID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list ticket messages")
	}
	return rows, nil
}

func (s *service) broadcastTicket(ctx context.Context, eventType enums.EventType, ticket *models.Ticket) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(ctx, realtime.Event{
		Type: eventType,
		Data: map[string]any{
			"ticket_id": ticket.ID,
			"order_id":  ticket.OrderID,
			"driver_id": ticket.DriverID,
			"status":    ticket.Status.String(),
		},
	})
}

func (s *service) broadcastOrderStatus(ctx context.Context, order *models.Order) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(ctx, realtime.Event{
		Type: enums.EventTypeOrderStatusUpdate,
		Data: map[string]any{
			"order_id":  order.ID,
			"status":    order.Status.String(),
			"driver_id": order.DriverID,
		},
	})
}

func (s *service) record(ctx context.Context, action, actor string, details map[string]any) {
	if s.recorder == nil {
		return
	}
	var actorPtr *string
	if actor != "" {
		actorPtr = &actor
	}
	s.recorder.Record(ctx, syslog.Entry{
		Level:   enums.LogLevelInfo,
		Action:  action,
		Actor:   actorPtr,
		Details: details,
	})
}

func (s *service) normalizeTxErr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "not found")
	}
	if appErr := pkgerrors.As(err); appErr != nil {
		return appErr
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
