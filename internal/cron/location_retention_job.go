package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/entregave/dispatch-backend/pkg/logger"
)

const defaultLocationRetention = 30 * 24 * time.Hour

type locationLogPruner interface {
	DeleteLocationLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LocationRetentionJobParams configure the courier trail pruning job.
type LocationRetentionJobParams struct {
	Logger    *logger.Logger
	Drivers   locationLogPruner
	Retention time.Duration
}

// NewLocationRetentionJob builds the job that prunes old courier location
// logs.
func NewLocationRetentionJob(params LocationRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Drivers == nil {
		return nil, fmt.Errorf("drivers repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultLocationRetention
	}
	return &locationRetentionJob{
		logg:      params.Logger,
		drivers:   params.Drivers,
		retention: retention,
		now:       time.Now,
	}, nil
}

type locationRetentionJob struct {
	logg      *logger.Logger
	drivers   locationLogPruner
	retention time.Duration
	now       func() time.Time
}

func (j *locationRetentionJob) Name() string { return "location-retention" }

func (j *locationRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.drivers.DeleteLocationLogsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune location logs: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "deleted", deleted)
	j.logg.Info(logCtx, "location log retention complete")
	return nil
}
