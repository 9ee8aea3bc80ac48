package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/entregave/dispatch-backend/pkg/enums"
)

// Order is a delivery job from pickup at a merchant to a dropoff address.
type Order struct {
	ID              int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Description     string            `gorm:"column:description;not null"`
	DeliveryAddress string            `gorm:"column:delivery_address;not null"`
	PickupLat       float64           `gorm:"column:pickup_lat;not null"`
	PickupLng       float64           `gorm:"column:pickup_lng;not null"`
	DropoffLat      float64           `gorm:"column:dropoff_lat;not null"`
	DropoffLng      float64           `gorm:"column:dropoff_lng;not null"`
	VehicleType     enums.VehicleType `gorm:"column:vehicle_type;type:text;not null"`
	Details         *string           `gorm:"column:details"`
	PickupPhone     *string           `gorm:"column:pickup_phone"`
	DropoffPhone    *string           `gorm:"column:dropoff_phone"`
	MapsLink        *string           `gorm:"column:maps_link"`
	MerchantID      string            `gorm:"column:merchant_id;not null;index"`
	Cost            *decimal.Decimal  `gorm:"column:cost;type:numeric(12,2)"`
	Currency        string            `gorm:"column:currency;not null;default:'USD'"`
	DistanceKm      *float64          `gorm:"column:distance_km"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pendiente';index"`
	PriorStatus     *string           `gorm:"column:prior_status"`
	DriverID        *string           `gorm:"column:driver_id;index"`
	HasOpenTicket   bool              `gorm:"column:has_open_ticket;not null;default:false"`
	CreatedBy       string            `gorm:"column:created_by;not null"`
	ExternalID      *string           `gorm:"column:external_id;index"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (Order) TableName() string {
	return "orders"
}

// OrderStatusLog is the append-only history of order status changes.
type OrderStatusLog struct {
	ID         int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    int64             `gorm:"column:order_id;not null;index"`
	Status     enums.OrderStatus `gorm:"column:status;type:text;not null"`
	DriverID   *string           `gorm:"column:driver_id"`
	DriverLat  *float64          `gorm:"column:driver_lat"`
	DriverLng  *float64          `gorm:"column:driver_lng"`
	RecordedAt time.Time         `gorm:"column:recorded_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (OrderStatusLog) TableName() string {
	return "order_status_logs"
}
