package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/internal/orders"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

type stubTrackingRepo struct {
	order  *models.Order
	rider  *models.Rider
	pings  []*models.DeliveryTracking
	latest *models.DeliveryTracking
}

func (s *stubTrackingRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubTrackingRepo) FindOrderByIDLocked(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubTrackingRepo) FindRiderByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	if s.rider == nil || s.rider.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.rider, nil
}

func (s *stubTrackingRepo) CreateTracking(ctx context.Context, row *models.DeliveryTracking) error {
	s.pings = append(s.pings, row)
	return nil
}

func (s *stubTrackingRepo) LatestForOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryTracking, error) {
	if s.latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.latest, nil
}

func (s *stubTrackingRepo) UpdateRiderLocation(ctx context.Context, riderID uuid.UUID, location types.GeographyPoint, at time.Time) error {
	s.rider.CurrentLocation = &location
	s.rider.LastLocationAt = &at
	return nil
}

func (s *stubTrackingRepo) DeleteForClosedOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubOrderAccess struct {
	order       *models.Order
	transitions []enums.OrderStatus
}

func (s *stubOrderAccess) Get(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubOrderAccess) ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, actor orders.Actor) error {
	s.transitions = append(s.transitions, target)
	order.Status = target
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type capturingOutbox struct {
	events []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func trackingFixture(status enums.OrderStatus) (*stubTrackingRepo, *stubOrderAccess) {
	riderID := uuid.New()
	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      uuid.New(),
		RiderID:         &riderID,
		Status:          status,
		DropoffLocation: types.GeographyPoint{Lat: 6.62, Lng: 3.3515},
	}
	rider := &models.Rider{
		ID:            riderID,
		UserID:        uuid.New(),
		TransportMode: enums.TransportModeBike,
		Status:        enums.RiderStatusActive,
	}
	return &stubTrackingRepo{order: order, rider: rider}, &stubOrderAccess{order: order}
}

func newTestService(t *testing.T, repo Repository, access orderAccess, sink *capturingOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, sink, access, config.DeliveryConfig{
		NearDeliveryKM:      0.5,
		TrackingStaleCutoff: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestRecordLocation(t *testing.T) {
	repo, access := trackingFixture(enums.OrderStatusPickedUp)
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, access, sink)

	ping, err := svc.RecordLocation(context.Background(), RecordInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Lat:         6.6018,
		Lng:         3.3515,
	})
	if err != nil {
		t.Fatalf("RecordLocation() error = %v", err)
	}
	if ping.DistanceToDestinationKM <= 0 {
		t.Fatalf("distance = %f", ping.DistanceToDestinationKM)
	}
	if ping.ETAMinutes <= 0 {
		t.Fatalf("eta = %d", ping.ETAMinutes)
	}
	if repo.rider.CurrentLocation == nil {
		t.Fatal("rider location not updated")
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventTrackingUpdated {
		t.Fatalf("unexpected outbox events: %+v", sink.events)
	}
	if len(access.transitions) != 0 {
		t.Fatalf("no transition expected, got %v", access.transitions)
	}
}

func TestRecordLocationTriggersNearDelivery(t *testing.T) {
	repo, access := trackingFixture(enums.OrderStatusInTransit)
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, access, sink)

	// Roughly 200m from the dropoff point.
	_, err := svc.RecordLocation(context.Background(), RecordInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Lat:         6.6218,
		Lng:         3.3515,
	})
	if err != nil {
		t.Fatalf("RecordLocation() error = %v", err)
	}
	if len(access.transitions) != 1 || access.transitions[0] != enums.OrderStatusNearDelivery {
		t.Fatalf("transitions = %v, want near_delivery", access.transitions)
	}

	var sawNear bool
	for _, event := range sink.events {
		if event.EventType == enums.EventOrderNearDelivery {
			sawNear = true
		}
	}
	if !sawNear {
		t.Fatal("order_near_delivery event not emitted")
	}
}

func TestRecordLocationNearThresholdOutsideInTransit(t *testing.T) {
	repo, access := trackingFixture(enums.OrderStatusPickedUp)
	svc := newTestService(t, repo, access, &capturingOutbox{})

	_, err := svc.RecordLocation(context.Background(), RecordInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Lat:         6.6218,
		Lng:         3.3515,
	})
	if err != nil {
		t.Fatalf("RecordLocation() error = %v", err)
	}
	if len(access.transitions) != 0 {
		t.Fatalf("transition should not fire outside in_transit, got %v", access.transitions)
	}
}

func TestRecordLocationRejectsTerminalOrder(t *testing.T) {
	repo, access := trackingFixture(enums.OrderStatusDelivered)
	svc := newTestService(t, repo, access, &capturingOutbox{})

	_, err := svc.RecordLocation(context.Background(), RecordInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Lat:         6.6018,
		Lng:         3.3515,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestRecordLocationRejectsForeignRider(t *testing.T) {
	repo, access := trackingFixture(enums.OrderStatusInTransit)
	other := uuid.New()
	repo.order.RiderID = &other
	svc := newTestService(t, repo, access, &capturingOutbox{})

	_, err := svc.RecordLocation(context.Background(), RecordInput{
		OrderID:     repo.order.ID,
		RiderUserID: repo.rider.UserID,
		Lat:         6.6018,
		Lng:         3.3515,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("error = %v, want forbidden", err)
	}
}

func TestSnapshot(t *testing.T) {
	repo, access := trackingFixture(enums.OrderStatusInTransit)
	svc := newTestService(t, repo, access, &capturingOutbox{})
	actor := orders.Actor{UserID: repo.order.CustomerID, Role: enums.UserRoleCustomer}

	snapshot, err := svc.Snapshot(context.Background(), repo.order.ID, actor)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snapshot.Available {
		t.Fatal("snapshot should be unavailable before first ping")
	}

	repo.latest = &models.DeliveryTracking{
		OrderID:    repo.order.ID,
		RecordedAt: time.Now().Add(-time.Minute),
	}
	snapshot, err = svc.Snapshot(context.Background(), repo.order.ID, actor)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snapshot.Available || snapshot.Stale {
		t.Fatalf("snapshot = %+v, want fresh", snapshot)
	}

	repo.latest.RecordedAt = time.Now().Add(-time.Hour)
	snapshot, err = svc.Snapshot(context.Background(), repo.order.ID, actor)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snapshot.Stale {
		t.Fatal("snapshot should be stale after the cutoff")
	}
}
