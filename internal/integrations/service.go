// Package integrations manages partner webhook configurations and delivers
// order events to their endpoints.
package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service exposes integration config management.
type Service interface {
	Create(ctx context.Context, input ConfigInput) (*models.IntegrationConfig, error)
	Get(ctx context.Context, id int64) (*models.IntegrationConfig, error)
	List(ctx context.Context) ([]models.IntegrationConfig, error)
	Update(ctx context.Context, id int64, input ConfigInput) (*models.IntegrationConfig, error)
	Delete(ctx context.Context, id int64) error
}

// ConfigInput carries integration config fields.
type ConfigInput struct {
	Name             string
	Active           *bool
	ExternalIDPrefix string
	Webhooks         json.RawMessage
}

// ServiceParams wires the integrations service dependencies.
type ServiceParams struct {
	Logger *logger.Logger
	Repo   Repository
}

type service struct {
	logg *logger.Logger
	repo Repository
}

// NewService validates params and builds the integrations service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "integrations service requires a logger")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "integrations service requires a repository")
	}
	return &service{logg: params.Logger, repo: params.Repo}, nil
}

func (s *service) Create(ctx context.Context, input ConfigInput) (*models.IntegrationConfig, error) {
	if err := validateConfigInput(input); err != nil {
		return nil, err
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	cfg := &models.IntegrationConfig{
		Name:             strings.TrimSpace(input.Name),
		Active:           active,
		ExternalIDPrefix: strings.TrimSpace(input.ExternalIDPrefix),
		Webhooks:         input.Webhooks,
	}
	saved, err := s.repo.Create(ctx, cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create integration config")
	}
	return saved, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.IntegrationConfig, error) {
	cfg, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "integration config not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load integration config")
	}
	return cfg, nil
}

func (s *service) List(ctx context.Context) ([]models.IntegrationConfig, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list integration configs")
	}
	return rows, nil
}

func (s *service) Update(ctx context.Context, id int64, input ConfigInput) (*models.IntegrationConfig, error) {
	if err := validateConfigInput(input); err != nil {
		return nil, err
	}
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg.Name = strings.TrimSpace(input.Name)
	cfg.ExternalIDPrefix = strings.TrimSpace(input.ExternalIDPrefix)
	cfg.Webhooks = input.Webhooks
	if input.Active != nil {
		cfg.Active = *input.Active
	}
	saved, err := s.repo.Update(ctx, cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update integration config")
	}
	return saved, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete integration config")
	}
	return nil
}

func validateConfigInput(input ConfigInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "integration name is required")
	}
	if strings.TrimSpace(input.ExternalIDPrefix) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external id prefix is required")
	}
	if len(input.Webhooks) == 0 || !json.Valid(input.Webhooks) {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhooks must be a valid JSON document")
	}
	var hooks map[string]webhookEntry
	if err := json.Unmarshal(input.Webhooks, &hooks); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhooks must map event types to url/template entries")
	}
	return nil
}
