// Package scheduled queues order drafts for future release by the sweep.
package scheduled

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"gorm.io/gorm"
)

// OrderPayload is the order draft stored in a scheduled row. Coordinates are
// optional; the sweep releases the order without pricing when they are
// missing.
type OrderPayload struct {
	Description     string   `json:"description"`
	DeliveryAddress string   `json:"delivery_address"`
	PickupLat       *float64 `json:"pickup_lat,omitempty"`
	PickupLng       *float64 `json:"pickup_lng,omitempty"`
	DropoffLat      *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng      *float64 `json:"dropoff_lng,omitempty"`
	VehicleType     string   `json:"vehicle_type"`
	MerchantID      *string  `json:"merchant_id,omitempty"`
	MerchantName    string   `json:"merchant_name"`
	Details         *string  `json:"details,omitempty"`
	PickupPhone     *string  `json:"pickup_phone,omitempty"`
	DropoffPhone    *string  `json:"dropoff_phone,omitempty"`
}

// Validate checks the draft holds what the sweep needs to release it.
func (p OrderPayload) Validate() error {
	if strings.TrimSpace(p.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payload description is required")
	}
	if strings.TrimSpace(p.DeliveryAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payload delivery address is required")
	}
	if _, err := enums.ParseVehicleType(p.VehicleType); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payload vehicle type is invalid")
	}
	if p.MerchantID == nil && strings.TrimSpace(p.MerchantName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payload requires a merchant id or name")
	}
	return nil
}

// HasCoordinates reports whether both route endpoints are present.
func (p OrderPayload) HasCoordinates() bool {
	return p.PickupLat != nil && p.PickupLng != nil && p.DropoffLat != nil && p.DropoffLng != nil
}

// Service exposes scheduled order management.
type Service interface {
	Create(ctx context.Context, payload OrderPayload, releaseAt time.Time, createdBy string) (*models.ScheduledOrder, error)
	Get(ctx context.Context, id int64) (*models.ScheduledOrder, error)
	List(ctx context.Context, filter ListFilter) ([]models.ScheduledOrder, error)
	Cancel(ctx context.Context, id int64) error
}

// ServiceParams wires the scheduled service dependencies.
type ServiceParams struct {
	Logger *logger.Logger
	Repo   Repository
	Now    func() time.Time
}

type service struct {
	logg *logger.Logger
	repo Repository
	now  func() time.Time
}

// NewService validates params and builds the scheduled service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "scheduled service requires a logger")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "scheduled service requires a repository")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{logg: params.Logger, repo: params.Repo, now: now}, nil
}

func (s *service) Create(ctx context.Context, payload OrderPayload, releaseAt time.Time, createdBy string) (*models.ScheduledOrder, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if releaseAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "release time is required")
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created by is required")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode payload")
	}
	row, err := s.repo.Create(ctx, &models.ScheduledOrder{
		Payload:   encoded,
		ReleaseAt: releaseAt.UTC(),
		Status:    enums.ScheduledStatusPending,
		CreatedBy: createdBy,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create scheduled order")
	}
	return row, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.ScheduledOrder, error) {
	row, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scheduled order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load scheduled order")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.ScheduledOrder, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list scheduled orders")
	}
	return rows, nil
}

// Cancel removes a scheduled row before release. Rows the sweep has already
// finished stay in place as history.
func (s *service) Cancel(ctx context.Context, id int64) error {
	row, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if row.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "scheduled order already processed")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to cancel scheduled order")
	}
	return nil
}
