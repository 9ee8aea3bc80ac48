package merchants

import (
	"context"
	"errors"
	"strings"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service exposes merchant management operations.
type Service interface {
	Upsert(ctx context.Context, input UpsertInput) (*models.Merchant, error)
	Get(ctx context.Context, id string) (*models.Merchant, error)
	List(ctx context.Context) ([]models.Merchant, error)
	Delete(ctx context.Context, id string) error
}

// UpsertInput carries merchant fields. The caller supplies the id, which
// doubles as the external merchant identifier used for integration matching.
type UpsertInput struct {
	ID      string
	Name    string
	Address *string
	Lat     *float64
	Lng     *float64
	Phone   *string
}

// ServiceParams wires the merchants service dependencies.
type ServiceParams struct {
	Logger *logger.Logger
	Repo   Repository
}

type service struct {
	logger *logger.Logger
	repo   Repository
}

// NewService validates params and builds the merchants service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "merchants service requires a logger")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "merchants service requires a repository")
	}
	return &service{logger: params.Logger, repo: params.Repo}, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.Merchant, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant name is required")
	}
	if (input.Lat == nil) != (input.Lng == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant coordinates must include both latitude and longitude")
	}

	merchant := &models.Merchant{
		ID:      id,
		Name:    name,
		Address: input.Address,
		Lat:     input.Lat,
		Lng:     input.Lng,
		Phone:   input.Phone,
	}
	saved, err := s.repo.Upsert(ctx, merchant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to upsert merchant")
	}
	return saved, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Merchant, error) {
	merchant, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load merchant")
	}
	return merchant, nil
}

func (s *service) List(ctx context.Context) ([]models.Merchant, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list merchants")
	}
	return rows, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if pkgerrors.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "merchant has associated orders and cannot be deleted")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete merchant")
	}
	return nil
}
