package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
)

// Service produces delivery performance reports for admins.
type Service interface {
	DeliveryPerformance(ctx context.Context, input PerformanceInput) (*PerformanceReport, error)
	StatusBreakdown(ctx context.Context, input BreakdownInput) (*StatusBreakdown, error)
}

type service struct {
	repo Repository
}

// PerformanceInput scopes a delivery performance query.
type PerformanceInput struct {
	ActorRole enums.UserRole
	From      time.Time
	To        time.Time
	VendorID  *uuid.UUID
}

// PerformanceReport aggregates delivered orders in the period. Orders that
// never recorded a pickup time are counted but excluded from the duration
// average; orders without an estimate are excluded from the on-time rate.
type PerformanceReport struct {
	From                time.Time  `json:"from"`
	To                  time.Time  `json:"to"`
	VendorID            *uuid.UUID `json:"vendor_id,omitempty"`
	DeliveredCount      int        `json:"delivered_count"`
	MeasuredCount       int        `json:"measured_count"`
	AvgDeliveryDuration string     `json:"avg_delivery_duration"`
	AvgDeliverySeconds  float64    `json:"avg_delivery_seconds"`
	OnTimeCount         int        `json:"on_time_count"`
	EstimatedCount      int        `json:"estimated_count"`
	OnTimeRate          float64    `json:"on_time_rate"`
}

// BreakdownInput scopes a status breakdown query.
type BreakdownInput struct {
	ActorRole enums.UserRole
	From      time.Time
	To        time.Time
}

// StatusBreakdown counts orders created in the period by current status.
type StatusBreakdown struct {
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// NewService builds a reports service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo}, nil
}

func validatePeriod(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "report period required")
	}
	if !to.After(from) {
		return pkgerrors.New(pkgerrors.CodeValidation, "report period is empty")
	}
	return nil
}

func (s *service) DeliveryPerformance(ctx context.Context, input PerformanceInput) (*PerformanceReport, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins view reports")
	}
	if err := validatePeriod(input.From, input.To); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListDeliveredBetween(ctx, input.From, input.To, input.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivered orders")
	}

	report := &PerformanceReport{
		From:     input.From,
		To:       input.To,
		VendorID: input.VendorID,
	}

	var totalDuration time.Duration
	for _, row := range rows {
		report.DeliveredCount++
		if row.ActualDeliveryTime == nil {
			continue
		}
		if row.ActualPickupTime != nil {
			report.MeasuredCount++
			totalDuration += row.ActualDeliveryTime.Sub(*row.ActualPickupTime)
		}
		if row.EstimatedDeliveryTime != nil {
			report.EstimatedCount++
			if !row.ActualDeliveryTime.After(*row.EstimatedDeliveryTime) {
				report.OnTimeCount++
			}
		}
	}

	if report.MeasuredCount > 0 {
		avg := totalDuration / time.Duration(report.MeasuredCount)
		report.AvgDeliverySeconds = avg.Seconds()
		report.AvgDeliveryDuration = avg.Round(time.Second).String()
	}
	if report.EstimatedCount > 0 {
		report.OnTimeRate = float64(report.OnTimeCount) / float64(report.EstimatedCount)
	}
	return report, nil
}

func (s *service) StatusBreakdown(ctx context.Context, input BreakdownInput) (*StatusBreakdown, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins view reports")
	}
	if err := validatePeriod(input.From, input.To); err != nil {
		return nil, err
	}

	counts, err := s.repo.CountByStatusBetween(ctx, input.From, input.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders by status")
	}

	breakdown := &StatusBreakdown{From: input.From, To: input.To, Counts: counts}
	for _, count := range counts {
		breakdown.Total += count
	}
	return breakdown, nil
}
