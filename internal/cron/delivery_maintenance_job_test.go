package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

type fakeCodeCleaner struct {
	lastCutoff time.Time
	cleared    int64
	err        error
	called     int
}

func (f *fakeCodeCleaner) ClearExpiredCodes(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.cleared, f.err
}

type fakeTrackingPruner struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakeTrackingPruner) DeleteForClosedOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func newMaintenanceJob(t *testing.T, codes *fakeCodeCleaner, pruner *fakeTrackingPruner) *deliveryMaintenanceJob {
	t.Helper()
	jobIface, err := NewDeliveryMaintenanceJob(DeliveryMaintenanceJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Codes:    codes,
		Tracking: pruner,
	})
	if err != nil {
		t.Fatalf("NewDeliveryMaintenanceJob: %v", err)
	}
	job, ok := jobIface.(*deliveryMaintenanceJob)
	if !ok {
		t.Fatalf("expected deliveryMaintenanceJob, got %T", jobIface)
	}
	return job
}

func TestDeliveryMaintenanceRunsBothPhases(t *testing.T) {
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	codes := &fakeCodeCleaner{cleared: 7}
	pruner := &fakeTrackingPruner{deleted: 42}
	job := newMaintenanceJob(t, codes, pruner)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if codes.called != 1 || pruner.called != 1 {
		t.Fatalf("phases ran %d/%d times, want 1/1", codes.called, pruner.called)
	}
	if !codes.lastCutoff.Equal(now) {
		t.Fatalf("code cutoff = %s, want %s", codes.lastCutoff, now)
	}
	wantTrackingCutoff := now.Add(-trackingRetentionDays * 24 * time.Hour)
	if !pruner.lastCutoff.Equal(wantTrackingCutoff) {
		t.Fatalf("tracking cutoff = %s, want %s", pruner.lastCutoff, wantTrackingCutoff)
	}
}

func TestDeliveryMaintenanceContinuesPastPhaseFailure(t *testing.T) {
	codes := &fakeCodeCleaner{err: errors.New("db down")}
	pruner := &fakeTrackingPruner{}
	job := newMaintenanceJob(t, codes, pruner)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if pruner.called != 1 {
		t.Fatal("tracking phase must still run after code phase failure")
	}
}
