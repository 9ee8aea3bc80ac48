package models

import (
	"encoding/json"
	"time"
)

// AppConfig is a key/value document store for runtime configuration.
// The pricing tier document lives under the "pricing_tiers" key.
type AppConfig struct {
	Key       string          `gorm:"column:key;primaryKey"`
	Value     json.RawMessage `gorm:"column:value;type:jsonb;not null"`
	UpdatedBy *string         `gorm:"column:updated_by"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (AppConfig) TableName() string {
	return "app_configs"
}
