package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/entregave/dispatch-backend/pkg/logger"
)

type fakeLocationPruner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeLocationPruner) DeleteLocationLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestLocationRetention_PrunesBeforeCutoff(t *testing.T) {
	pruner := &fakeLocationPruner{deleted: 42}
	job, err := NewLocationRetentionJob(LocationRetentionJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Drivers:   pruner,
		Retention: 48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	before := time.Now().UTC().Add(-48 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	after := time.Now().UTC().Add(-48 * time.Hour)

	if pruner.cutoff.Before(before) || pruner.cutoff.After(after) {
		t.Fatalf("cutoff %v outside expected window [%v, %v]", pruner.cutoff, before, after)
	}
}

func TestLocationRetention_PropagatesPruneError(t *testing.T) {
	pruner := &fakeLocationPruner{err: errors.New("table locked")}
	job, err := NewLocationRetentionJob(LocationRetentionJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Drivers: pruner,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected prune error to propagate")
	}
}

func TestLocationRetention_RequiresDependencies(t *testing.T) {
	if _, err := NewLocationRetentionJob(LocationRetentionJobParams{
		Drivers: &fakeLocationPruner{},
	}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewLocationRetentionJob(LocationRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}); err == nil {
		t.Fatal("expected error without pruner")
	}
}
