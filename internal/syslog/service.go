// Package syslog records operational audit entries and surfaces them live on
// the dashboard.
package syslog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

// Recorder is the write-side surface used by other services. Recording is
// best-effort: failures are logged, never propagated to the caller's flow.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Service exposes audit trail operations.
type Service interface {
	Recorder
	List(ctx context.Context, filter ListFilter) ([]models.SystemLog, error)
}

// Entry is one audit record before persistence.
type Entry struct {
	Level   enums.LogLevel
	Action  string
	Actor   *string
	Details map[string]any
}

// ServiceParams wire syslog dependencies.
type ServiceParams struct {
	Logger      *logger.Logger
	Repo        Repository
	Broadcaster realtime.Broadcaster
}

type service struct {
	logg        *logger.Logger
	repo        Repository
	broadcaster realtime.Broadcaster
}

// NewService validates dependencies and builds the syslog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "syslog repository required")
	}
	return &service{
		logg:        params.Logger,
		repo:        params.Repo,
		broadcaster: params.Broadcaster,
	}, nil
}

func (s *service) Record(ctx context.Context, entry Entry) {
	level := entry.Level
	if !level.IsValid() {
		level = enums.LogLevelInfo
	}

	var details json.RawMessage
	if entry.Details != nil {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			s.logg.Error(ctx, "marshal system log details", err)
		} else {
			details = encoded
		}
	}

	row := &models.SystemLog{
		Level:   level,
		Action:  entry.Action,
		Actor:   entry.Actor,
		Details: details,
	}
	saved, err := s.repo.Create(ctx, row)
	if err != nil {
		s.logg.Error(ctx, "persist system log entry", err)
		return
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, realtime.Event{
			Type: enums.EventTypeNewSystemLog,
			Data: map[string]any{
				"id":         saved.ID,
				"level":      saved.Level,
				"action":     saved.Action,
				"actor":      saved.Actor,
				"created_at": saved.CreatedAt.UTC().Format(time.RFC3339),
			},
		})
	}
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.SystemLog, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list system logs")
	}
	return rows, nil
}
