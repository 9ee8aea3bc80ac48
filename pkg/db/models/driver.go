package models

import "time"

// Driver is a courier profile with its last known position.
type Driver struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Name          string     `gorm:"column:name;not null"`
	Status        string     `gorm:"column:status;not null;default:'activo'"`
	CommissionPct *float64   `gorm:"column:commission_pct"`
	LastLat       *float64   `gorm:"column:last_lat"`
	LastLng       *float64   `gorm:"column:last_lng"`
	BatteryPct    *float64   `gorm:"column:battery_pct"`
	FCMToken      *string    `gorm:"column:fcm_token"`
	LastSeenAt    *time.Time `gorm:"column:last_seen_at;index"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (Driver) TableName() string {
	return "drivers"
}

// DriverLocationLog is the append-only position trail of a courier.
type DriverLocationLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DriverID   string    `gorm:"column:driver_id;not null;index"`
	Lat        float64   `gorm:"column:lat;not null"`
	Lng        float64   `gorm:"column:lng;not null"`
	BatteryPct *float64  `gorm:"column:battery_pct"`
	RecordedAt time.Time `gorm:"column:recorded_at;autoCreateTime;index"`
}

// TableName overrides the GORM default.
func (DriverLocationLog) TableName() string {
	return "driver_location_logs"
}
