// Package configstore serves runtime configuration documents stored as
// jsonb rows, keyed by name. The pricing tier table is the primary tenant.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service exposes read and write access to configuration documents.
type Service interface {
	Get(ctx context.Context, key string) (*models.AppConfig, error)
	Put(ctx context.Context, key string, value json.RawMessage, updatedBy *string) (*models.AppConfig, error)
}

// ServiceParams wires the configstore service dependencies.
type ServiceParams struct {
	Logger   *logger.Logger
	Repo     Repository
	Recorder syslog.Recorder
}

type service struct {
	logg     *logger.Logger
	repo     Repository
	recorder syslog.Recorder
}

// NewService validates params and builds the configstore service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "configstore service requires a logger")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "configstore service requires a repository")
	}
	return &service{
		logg:     params.Logger,
		repo:     params.Repo,
		recorder: params.Recorder,
	}, nil
}

func (s *service) Get(ctx context.Context, key string) (*models.AppConfig, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config key is required")
	}
	row, err := s.repo.Find(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "config key not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load config")
	}
	return row, nil
}

func (s *service) Put(ctx context.Context, key string, value json.RawMessage, updatedBy *string) (*models.AppConfig, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config key is required")
	}
	if len(value) == 0 || !json.Valid(value) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config value must be valid JSON")
	}

	row, err := s.repo.Upsert(ctx, &models.AppConfig{
		Key:       key,
		Value:     value,
		UpdatedBy: updatedBy,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to store config")
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, syslog.Entry{
			Level:  enums.LogLevelCritical,
			Action: "config_updated",
			Actor:  updatedBy,
			Details: map[string]any{
				"key": key,
			},
		})
	}
	return row, nil
}
