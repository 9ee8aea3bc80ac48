package models

import (
	"encoding/json"
	"time"
)

// RestrictedZone is a polygon where order creation is rejected during the
// configured daily window. Both window bounds nil means restricted 24/7.
type RestrictedZone struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name           string          `gorm:"column:name;not null"`
	Active         bool            `gorm:"column:active;not null;default:true"`
	Polygon        json.RawMessage `gorm:"column:polygon;type:jsonb;not null"`
	RestrictedFrom *string         `gorm:"column:restricted_from"`
	RestrictedTo   *string         `gorm:"column:restricted_to"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (RestrictedZone) TableName() string {
	return "restricted_zones"
}
