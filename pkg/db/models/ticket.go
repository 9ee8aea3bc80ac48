package models

import (
	"time"

	"github.com/entregave/dispatch-backend/pkg/enums"
)

// Ticket is an incident raised by a courier against an active order.
type Ticket struct {
	ID        int64              `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64              `gorm:"column:order_id;not null;index"`
	DriverID  string             `gorm:"column:driver_id;not null"`
	Reason    string             `gorm:"column:reason;not null"`
	Status    enums.TicketStatus `gorm:"column:status;type:text;not null;default:'abierto';index"`
	Messages  []TicketMessage    `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (Ticket) TableName() string {
	return "tickets"
}

// TicketMessage is one entry in a ticket conversation.
type TicketMessage struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	TicketID      int64               `gorm:"column:ticket_id;not null;index"`
	Sender        enums.MessageSender `gorm:"column:sender;type:text;not null"`
	Body          *string             `gorm:"column:body"`
	AttachmentRef *string             `gorm:"column:attachment_ref"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (TicketMessage) TableName() string {
	return "ticket_messages"
}
