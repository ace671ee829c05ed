package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
)

type stubReportsRepo struct {
	delivered []DeliveredOrder
	counts    map[string]int64
}

func (s *stubReportsRepo) ListDeliveredBetween(ctx context.Context, from, to time.Time, vendorID *uuid.UUID) ([]DeliveredOrder, error) {
	if vendorID == nil {
		return s.delivered, nil
	}
	var filtered []DeliveredOrder
	for _, row := range s.delivered {
		if row.VendorID == *vendorID {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

func (s *stubReportsRepo) CountByStatusBetween(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	return s.counts, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func TestDeliveryPerformanceAveragesAndOnTimeRate(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	vendorA := uuid.New()
	repo := &stubReportsRepo{
		delivered: []DeliveredOrder{
			{
				// 20 minutes, on time.
				OrderID:               uuid.New(),
				VendorID:              vendorA,
				ActualPickupTime:      timePtr(base),
				ActualDeliveryTime:    timePtr(base.Add(20 * time.Minute)),
				EstimatedDeliveryTime: timePtr(base.Add(30 * time.Minute)),
			},
			{
				// 40 minutes, late.
				OrderID:               uuid.New(),
				VendorID:              vendorA,
				ActualPickupTime:      timePtr(base),
				ActualDeliveryTime:    timePtr(base.Add(40 * time.Minute)),
				EstimatedDeliveryTime: timePtr(base.Add(30 * time.Minute)),
			},
			{
				// No pickup recorded: counted, excluded from the average.
				OrderID:               uuid.New(),
				VendorID:              uuid.New(),
				ActualDeliveryTime:    timePtr(base.Add(25 * time.Minute)),
				EstimatedDeliveryTime: timePtr(base.Add(30 * time.Minute)),
			},
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	report, err := svc.DeliveryPerformance(context.Background(), PerformanceInput{
		ActorRole: enums.UserRoleAdmin,
		From:      base.Add(-time.Hour),
		To:        base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("DeliveryPerformance() error = %v", err)
	}

	if report.DeliveredCount != 3 {
		t.Fatalf("delivered count = %d, want 3", report.DeliveredCount)
	}
	if report.MeasuredCount != 2 {
		t.Fatalf("measured count = %d, want 2", report.MeasuredCount)
	}
	if report.AvgDeliverySeconds != (30 * time.Minute).Seconds() {
		t.Fatalf("avg seconds = %v, want 1800", report.AvgDeliverySeconds)
	}
	if report.OnTimeCount != 2 || report.EstimatedCount != 3 {
		t.Fatalf("on-time %d/%d, want 2/3", report.OnTimeCount, report.EstimatedCount)
	}
	if diff := report.OnTimeRate - 2.0/3.0; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("on-time rate = %v, want 2/3", report.OnTimeRate)
	}
}

func TestDeliveryPerformanceVendorFilter(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	vendorA := uuid.New()
	repo := &stubReportsRepo{
		delivered: []DeliveredOrder{
			{
				OrderID:            uuid.New(),
				VendorID:           vendorA,
				ActualPickupTime:   timePtr(base),
				ActualDeliveryTime: timePtr(base.Add(10 * time.Minute)),
			},
			{
				OrderID:            uuid.New(),
				VendorID:           uuid.New(),
				ActualPickupTime:   timePtr(base),
				ActualDeliveryTime: timePtr(base.Add(50 * time.Minute)),
			},
		},
	}
	svc, _ := NewService(repo)

	report, err := svc.DeliveryPerformance(context.Background(), PerformanceInput{
		ActorRole: enums.UserRoleAdmin,
		From:      base.Add(-time.Hour),
		To:        base.Add(time.Hour),
		VendorID:  &vendorA,
	})
	if err != nil {
		t.Fatalf("DeliveryPerformance() error = %v", err)
	}
	if report.DeliveredCount != 1 {
		t.Fatalf("delivered count = %d, want 1", report.DeliveredCount)
	}
	if report.AvgDeliverySeconds != (10 * time.Minute).Seconds() {
		t.Fatalf("avg seconds = %v, want 600", report.AvgDeliverySeconds)
	}
}

func TestReportsRequireAdmin(t *testing.T) {
	svc, _ := NewService(&stubReportsRepo{})
	now := time.Now().UTC()

	_, err := svc.DeliveryPerformance(context.Background(), PerformanceInput{
		ActorRole: enums.UserRoleVendor,
		From:      now.Add(-time.Hour),
		To:        now,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("code = %v, want forbidden", pkgerrors.CodeOf(err))
	}

	_, err = svc.StatusBreakdown(context.Background(), BreakdownInput{
		ActorRole: enums.UserRoleCustomer,
		From:      now.Add(-time.Hour),
		To:        now,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("code = %v, want forbidden", pkgerrors.CodeOf(err))
	}
}

func TestReportsRejectEmptyPeriod(t *testing.T) {
	svc, _ := NewService(&stubReportsRepo{})
	now := time.Now().UTC()

	_, err := svc.DeliveryPerformance(context.Background(), PerformanceInput{
		ActorRole: enums.UserRoleAdmin,
		From:      now,
		To:        now,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("code = %v, want validation", pkgerrors.CodeOf(err))
	}
}

func TestStatusBreakdownTotals(t *testing.T) {
	repo := &stubReportsRepo{counts: map[string]int64{
		"pending":   4,
		"delivered": 10,
		"canceled":  2,
	}}
	svc, _ := NewService(repo)
	now := time.Now().UTC()

	breakdown, err := svc.StatusBreakdown(context.Background(), BreakdownInput{
		ActorRole: enums.UserRoleAdmin,
		From:      now.Add(-24 * time.Hour),
		To:        now,
	})
	if err != nil {
		t.Fatalf("StatusBreakdown() error = %v", err)
	}
	if breakdown.Total != 16 {
		t.Fatalf("total = %d, want 16", breakdown.Total)
	}
	if breakdown.Counts["delivered"] != 10 {
		t.Fatalf("delivered = %d, want 10", breakdown.Counts["delivered"])
	}
}
