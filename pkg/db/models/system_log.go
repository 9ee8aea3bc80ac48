package models

import (
	"encoding/json"
	"time"

	"github.com/entregave/dispatch-backend/pkg/enums"
)

// SystemLog is an operational audit entry visible on the dashboard.
type SystemLog struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Level     enums.LogLevel  `gorm:"column:level;type:text;not null"`
	Action    string          `gorm:"column:action;not null;index"`
	Actor     *string         `gorm:"column:actor"`
	Details   json.RawMessage `gorm:"column:details;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName overrides the GORM default.
func (SystemLog) TableName() string {
	return "system_logs"
}
