package models

import (
	"encoding/json"
	"time"

	"github.com/entregave/dispatch-backend/pkg/enums"
)

// ScheduledOrder queues an order payload for future release by the sweep.
type ScheduledOrder struct {
	ID          int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	Payload     json.RawMessage       `gorm:"column:payload;type:jsonb;not null"`
	ReleaseAt   time.Time             `gorm:"column:release_at;not null;index"`
	Status      enums.ScheduledStatus `gorm:"column:status;type:text;not null;default:'pendiente';index"`
	LastError   *string               `gorm:"column:last_error"`
	ProcessedAt *time.Time            `gorm:"column:processed_at"`
	CreatedBy   string                `gorm:"column:created_by;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (ScheduledOrder) TableName() string {
	return "scheduled_orders"
}
