package models

import "time"

// Merchant is a pickup origin. Ad-hoc merchants created by the release
// sweep carry the "custom_" id prefix.
type Merchant struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Address   *string   `gorm:"column:address"`
	Lat       *float64  `gorm:"column:lat"`
	Lng       *float64  `gorm:"column:lng"`
	Phone     *string   `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (Merchant) TableName() string {
	return "merchants"
}
