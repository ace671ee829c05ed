package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

const trackingRetentionDays = 14

// DeliveryMaintenanceJobParams configure the delivery maintenance job.
type DeliveryMaintenanceJobParams struct {
	Logger            *logger.Logger
	Codes             expiredCodeCleaner
	Tracking          trackingPruner
	TrackingRetention int
}

type expiredCodeCleaner interface {
	ClearExpiredCodes(ctx context.Context, cutoff time.Time) (int64, error)
}

type trackingPruner interface {
	DeleteForClosedOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewDeliveryMaintenanceJob builds the job that clears lapsed delivery codes
// and prunes ping history for closed orders. The phases are independent, so
// one failing does not stop the other.
func NewDeliveryMaintenanceJob(params DeliveryMaintenanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Codes == nil {
		return nil, fmt.Errorf("delivery code repository required")
	}
	if params.Tracking == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	retention := params.TrackingRetention
	if retention <= 0 {
		retention = trackingRetentionDays
	}
	return &deliveryMaintenanceJob{
		logg:      params.Logger,
		codes:     params.Codes,
		tracking:  params.Tracking,
		retention: retention,
		now:       time.Now,
	}, nil
}

type deliveryMaintenanceJob struct {
	logg      *logger.Logger
	codes     expiredCodeCleaner
	tracking  trackingPruner
	retention int
	now       func() time.Time
}

func (j *deliveryMaintenanceJob) Name() string { return "delivery-maintenance" }

func (j *deliveryMaintenanceJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.clearExpiredCodes(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.pruneTracking(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *deliveryMaintenanceJob) clearExpiredCodes(ctx context.Context) error {
	cutoff := j.now().UTC()
	cleared, err := j.codes.ClearExpiredCodes(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("clear expired delivery codes: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"rows_affected": cleared,
	})
	j.logg.Info(logCtx, "expired delivery codes cleared")
	return nil
}

func (j *deliveryMaintenanceJob) pruneTracking(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.tracking.DeleteForClosedOrdersBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune tracking history: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "closed order tracking history pruned")
	return nil
}
