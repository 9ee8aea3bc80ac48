package zones

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/geo"
	"gorm.io/gorm"
)

// Service exposes zone CRUD plus the restriction gate used by order intake.
type Service interface {
	CheckPoint(ctx context.Context, point geo.Point, now time.Time) (*Match, error)
	Create(ctx context.Context, input CreateInput) (*models.RestrictedZone, error)
	Get(ctx context.Context, id int64) (*models.RestrictedZone, error)
	List(ctx context.Context) ([]models.RestrictedZone, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*models.RestrictedZone, error)
	Delete(ctx context.Context, id int64) error
}

// CreateInput describes a new restricted zone.
type CreateInput struct {
	Name           string
	Active         *bool
	Polygon        [][]float64
	RestrictedFrom *string
	RestrictedTo   *string
}

// UpdateInput carries optional zone changes; nil fields are left untouched.
type UpdateInput struct {
	Name           *string
	Active         *bool
	Polygon        [][]float64
	RestrictedFrom *string
	RestrictedTo   *string
	ClearWindow    bool
}

type service struct {
	repo Repository
}

// NewService builds the zones service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "zones repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CheckPoint(ctx context.Context, point geo.Point, now time.Time) (*Match, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active zones")
	}
	return Evaluate(point, active, now)
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.RestrictedZone, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "zone name required")
	}
	if len(input.Polygon) < 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "polygon needs at least 3 vertices")
	}
	if err := validateWindow(input.RestrictedFrom, input.RestrictedTo); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(input.Polygon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode polygon")
	}

	zone := &models.RestrictedZone{
		Name:           input.Name,
		Active:         true,
		Polygon:        raw,
		RestrictedFrom: input.RestrictedFrom,
		RestrictedTo:   input.RestrictedTo,
	}
	if input.Active != nil {
		zone.Active = *input.Active
	}

	created, err := s.repo.Create(ctx, zone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create zone")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.RestrictedZone, error) {
	zone, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "zone not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find zone")
	}
	return zone, nil
}

func (s *service) List(ctx context.Context) ([]models.RestrictedZone, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list zones")
	}
	return rows, nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateInput) (*models.RestrictedZone, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "zone name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if input.Polygon != nil {
		if len(input.Polygon) < 3 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "polygon needs at least 3 vertices")
		}
		raw, err := json.Marshal(input.Polygon)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode polygon")
		}
		updates["polygon"] = raw
	}
	if input.ClearWindow {
		updates["restricted_from"] = nil
		updates["restricted_to"] = nil
	} else {
		if err := validateWindow(input.RestrictedFrom, input.RestrictedTo); err != nil {
			return nil, err
		}
		if input.RestrictedFrom != nil {
			updates["restricted_from"] = *input.RestrictedFrom
		}
		if input.RestrictedTo != nil {
			updates["restricted_to"] = *input.RestrictedTo
		}
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update zone")
		}
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete zone")
	}
	return nil
}

func validateWindow(from, to *string) error {
	for _, bound := range []*string{from, to} {
		if bound == nil {
			continue
		}
		if _, err := time.Parse("15:04", *bound); err != nil {
			if _, err := time.Parse("15:04:05", *bound); err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "window bounds must be HH:MM or HH:MM:SS")
			}
		}
	}
	return nil
}
