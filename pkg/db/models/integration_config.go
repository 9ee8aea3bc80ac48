package models

import (
	"encoding/json"
	"time"
)

// IntegrationConfig holds a partner's webhook endpoints keyed by event type.
// Partners are matched to merchants by id prefix.
type IntegrationConfig struct {
	ID               int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name             string          `gorm:"column:name;not null"`
	Active           bool            `gorm:"column:active;not null;default:true"`
	ExternalIDPrefix string          `gorm:"column:external_id_prefix;not null;index"`
	Webhooks         json.RawMessage `gorm:"column:webhooks;type:jsonb;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (IntegrationConfig) TableName() string {
	return "integration_configs"
}
