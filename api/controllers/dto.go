package controllers

import (
	"encoding/json"
	"time"

	"github.com/entregave/dispatch-backend/internal/drivers"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// OrderDTO is the wire shape of an order.
type OrderDTO struct {
	ID              int64            `json:"id"`
	Description     string           `json:"description"`
	DeliveryAddress string           `json:"delivery_address"`
	PickupLat       float64          `json:"pickup_lat"`
	PickupLng       float64          `json:"pickup_lng"`
	DropoffLat      float64          `json:"dropoff_lat"`
	DropoffLng      float64          `json:"dropoff_lng"`
	VehicleType     string           `json:"vehicle_type"`
	Details         *string          `json:"details,omitempty"`
	PickupPhone     *string          `json:"pickup_phone,omitempty"`
	DropoffPhone    *string          `json:"dropoff_phone,omitempty"`
	MapsLink        *string          `json:"maps_link,omitempty"`
	MerchantID      string           `json:"merchant_id"`
	Cost            *decimal.Decimal `json:"cost,omitempty"`
	Currency        string           `json:"currency"`
	DistanceKm      *float64         `json:"distance_km,omitempty"`
	Status          string           `json:"status"`
	DriverID        *string          `json:"driver_id,omitempty"`
	HasOpenTicket   bool             `json:"has_open_ticket"`
	CreatedBy       string           `json:"created_by"`
	ExternalID      *string          `json:"external_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func toOrderDTO(order *models.Order) OrderDTO {
	return OrderDTO{
		ID:              order.ID,
		Description:     order.Description,
		DeliveryAddress: order.DeliveryAddress,
		PickupLat:       order.PickupLat,
		PickupLng:       order.PickupLng,
		DropoffLat:      order.DropoffLat,
		DropoffLng:      order.DropoffLng,
		VehicleType:     order.VehicleType.String(),
		Details:         order.Details,
		PickupPhone:     order.PickupPhone,
		DropoffPhone:    order.DropoffPhone,
		MapsLink:        order.MapsLink,
		MerchantID:      order.MerchantID,
		Cost:            order.Cost,
		Currency:        order.Currency,
		DistanceKm:      order.DistanceKm,
		Status:          order.Status.String(),
		DriverID:        order.DriverID,
		HasOpenTicket:   order.HasOpenTicket,
		CreatedBy:       order.CreatedBy,
		ExternalID:      order.ExternalID,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func toOrderDTOs(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderDTO(&orders[i]))
	}
	return out
}

// StatusLogDTO is one order history entry.
type StatusLogDTO struct {
	Status     string    `json:"status"`
	DriverID   *string   `json:"driver_id,omitempty"`
	DriverLat  *float64  `json:"driver_lat,omitempty"`
	DriverLng  *float64  `json:"driver_lng,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toStatusLogDTOs(logs []models.OrderStatusLog) []StatusLogDTO {
	out := make([]StatusLogDTO, 0, len(logs))
	for _, log := range logs {
		out = append(out, StatusLogDTO{
			Status:     log.Status.String(),
			DriverID:   log.DriverID,
			DriverLat:  log.DriverLat,
			DriverLng:  log.DriverLng,
			RecordedAt: log.RecordedAt,
		})
	}
	return out
}

// TicketDTO is the wire shape of an incident ticket.
type TicketDTO struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	DriverID  string    `json:"driver_id"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTicketDTO(ticket *models.Ticket) TicketDTO {
	return TicketDTO{
		ID:        ticket.ID,
		OrderID:   ticket.OrderID,
		DriverID:  ticket.DriverID,
		Reason:    ticket.Reason,
		Status:    ticket.Status.String(),
		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
	}
}

func toTicketDTOs(tickets []models.Ticket) []TicketDTO {
	out := make([]TicketDTO, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketDTO(&tickets[i]))
	}
	return out
}

// TicketMessageDTO is one ticket conversation entry.
type TicketMessageDTO struct {
	ID            int64     `json:"id"`
	TicketID      int64     `json:"ticket_id"`
	Sender        string    `json:"sender"`
	Body          *string   `json:"body,omitempty"`
	AttachmentRef *string   `json:"attachment_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTicketMessageDTO(message *models.TicketMessage) TicketMessageDTO {
	return TicketMessageDTO{
		ID:            message.ID,
		TicketID:      message.TicketID,
		Sender:        message.Sender.String(),
		Body:          message.Body,
		AttachmentRef: message.AttachmentRef,
		CreatedAt:     message.CreatedAt,
	}
}

func toTicketMessageDTOs(messages []models.TicketMessage) []TicketMessageDTO {
	out := make([]TicketMessageDTO, 0, len(messages))
	for i := range messages {
		out = append(out, toTicketMessageDTO(&messages[i]))
	}
	return out
}

// DriverDTO is a courier profile.
type DriverDTO struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	CommissionPct *float64   `json:"commission_pct,omitempty"`
	LastLat       *float64   `json:"last_lat,omitempty"`
	LastLng       *float64   `json:"last_lng,omitempty"`
	BatteryPct    *float64   `json:"battery_pct,omitempty"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
}

func toDriverDTO(driver *models.Driver) DriverDTO {
	return DriverDTO{
		ID:            driver.ID,
		Name:          driver.Name,
		Status:        driver.Status,
		CommissionPct: driver.CommissionPct,
		LastLat:       driver.LastLat,
		LastLng:       driver.LastLng,
		BatteryPct:    driver.BatteryPct,
		LastSeenAt:    driver.LastSeenAt,
	}
}

func toDriverDTOs(list []models.Driver) []DriverDTO {
	out := make([]DriverDTO, 0, len(list))
	for i := range list {
		out = append(out, toDriverDTO(&list[i]))
	}
	return out
}

// ActiveDriverDTO is a recently seen courier with its freshest position.
type ActiveDriverDTO struct {
	DriverDTO
	Lat        *float64   `json:"lat,omitempty"`
	Lng        *float64   `json:"lng,omitempty"`
	ReportedAt *time.Time `json:"reported_at,omitempty"`
}

func toActiveDriverDTOs(list []drivers.ActiveDriver) []ActiveDriverDTO {
	out := make([]ActiveDriverDTO, 0, len(list))
	for i := range list {
		dto := ActiveDriverDTO{
			DriverDTO:  toDriverDTO(&list[i].Driver),
			Lat:        list[i].Lat,
			Lng:        list[i].Lng,
			ReportedAt: list[i].ReportedAt,
		}
		dto.BatteryPct = list[i].BatteryPct
		out = append(out, dto)
	}
	return out
}

// MerchantDTO is a pickup origin.
type MerchantDTO struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Address *string  `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Phone   *string  `json:"phone,omitempty"`
}

func toMerchantDTO(merchant *models.Merchant) MerchantDTO {
	return MerchantDTO{
		ID:      merchant.ID,
		Name:    merchant.Name,
		Address: merchant.Address,
		Lat:     merchant.Lat,
		Lng:     merchant.Lng,
		Phone:   merchant.Phone,
	}
}

func toMerchantDTOs(list []models.Merchant) []MerchantDTO {
	out := make([]MerchantDTO, 0, len(list))
	for i := range list {
		out = append(out, toMerchantDTO(&list[i]))
	}
	return out
}

// ZoneDTO is a restricted delivery zone.
type ZoneDTO struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Active         bool            `json:"active"`
	Polygon        json.RawMessage `json:"polygon"`
	RestrictedFrom *string         `json:"restricted_from,omitempty"`
	RestrictedTo   *string         `json:"restricted_to,omitempty"`
}

func toZoneDTO(zone *models.RestrictedZone) ZoneDTO {
	return ZoneDTO{
		ID:             zone.ID,
		Name:           zone.Name,
		Active:         zone.Active,
		Polygon:        zone.Polygon,
		RestrictedFrom: zone.RestrictedFrom,
		RestrictedTo:   zone.RestrictedTo,
	}
}

func toZoneDTOs(list []models.RestrictedZone) []ZoneDTO {
	out := make([]ZoneDTO, 0, len(list))
	for i := range list {
		out = append(out, toZoneDTO(&list[i]))
	}
	return out
}

// ScheduledOrderDTO is a pending future release.
type ScheduledOrderDTO struct {
	ID          int64           `json:"id"`
	Payload     json.RawMessage `json:"payload"`
	ReleaseAt   time.Time       `json:"release_at"`
	Status      string          `json:"status"`
	LastError   *string         `json:"last_error,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toScheduledOrderDTO(row *models.ScheduledOrder) ScheduledOrderDTO {
	return ScheduledOrderDTO{
		ID:          row.ID,
		Payload:     row.Payload,
		ReleaseAt:   row.ReleaseAt,
		Status:      row.Status.String(),
		LastError:   row.LastError,
		ProcessedAt: row.ProcessedAt,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
	}
}

func toScheduledOrderDTOs(list []models.ScheduledOrder) []ScheduledOrderDTO {
	out := make([]ScheduledOrderDTO, 0, len(list))
	for i := range list {
		out = append(out, toScheduledOrderDTO(&list[i]))
	}
	return out
}

// IntegrationDTO is a partner webhook configuration.
type IntegrationDTO struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Active           bool            `json:"active"`
	ExternalIDPrefix string          `json:"external_id_prefix"`
	Webhooks         json.RawMessage `json:"webhooks"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func toIntegrationDTO(cfg *models.IntegrationConfig) IntegrationDTO {
	return IntegrationDTO{
		ID:               cfg.ID,
		Name:             cfg.Name,
		Active:           cfg.Active,
		ExternalIDPrefix: cfg.ExternalIDPrefix,
		Webhooks:         cfg.Webhooks,
		CreatedAt:        cfg.CreatedAt,
		UpdatedAt:        cfg.UpdatedAt,
	}
}

func toIntegrationDTOs(list []models.IntegrationConfig) []IntegrationDTO {
	out := make([]IntegrationDTO, 0, len(list))
	for i := range list {
		out = append(out, toIntegrationDTO(&list[i]))
	}
	return out
}

// APIKeyDTO never exposes the stored hash.
type APIKeyDTO struct {
	ID         int64      `json:"id"`
	ClientName string     `json:"client_name"`
	Prefix     string     `json:"prefix"`
	Active     bool       `json:"active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func toAPIKeyDTO(key *models.APIKey) APIKeyDTO {
	return APIKeyDTO{
		ID:         key.ID,
		ClientName: key.ClientName,
		Prefix:     key.Prefix,
		Active:     key.Active,
		LastUsedAt: key.LastUsedAt,
		CreatedAt:  key.CreatedAt,
		RevokedAt:  key.RevokedAt,
	}
}

func toAPIKeyDTOs(list []models.APIKey) []APIKeyDTO {
	out := make([]APIKeyDTO, 0, len(list))
	for i := range list {
		out = append(out, toAPIKeyDTO(&list[i]))
	}
	return out
}

// SystemLogDTO is one audit trail entry.
type SystemLogDTO struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Action    string          `json:"action"`
	Actor     *string         `json:"actor,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toSystemLogDTOs(list []models.SystemLog) []SystemLogDTO {
	out := make([]SystemLogDTO, 0, len(list))
	for _, row := range list {
		out = append(out, SystemLogDTO{
			ID:        row.ID,
			Level:     row.Level.String(),
			Action:    row.Action,
			Actor:     row.Actor,
			Details:   row.Details,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}

// AppConfigDTO is one configuration document.
type AppConfigDTO struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedBy *string         `json:"updated_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toAppConfigDTO(row *models.AppConfig) AppConfigDTO {
	return AppConfigDTO{
		Key:       row.Key,
		Value:     row.Value,
		UpdatedBy: row.UpdatedBy,
		UpdatedAt: row.UpdatedAt,
	}
}
