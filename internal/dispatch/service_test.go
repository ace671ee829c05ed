package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

type stubDispatchRepo struct {
	orders       map[uuid.UUID]*models.Order
	riders       map[uuid.UUID]*models.Rider
	activeCount  int64
	statusEvents []*models.OrderStatusEvent
	trackingRows []*models.DeliveryTracking
}

func newStubDispatchRepo() *stubDispatchRepo {
	return &stubDispatchRepo{
		orders: make(map[uuid.UUID]*models.Order),
		riders: make(map[uuid.UUID]*models.Rider),
	}
}

func (s *stubDispatchRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubDispatchRepo) ListUnassignedOrders(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if order.Status == enums.OrderStatusPending && order.RiderID == nil {
			rows = append(rows, *order)
		}
	}
	return rows, nil
}

func (s *stubDispatchRepo) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubDispatchRepo) FindRiderByUserIDLocked(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	for _, rider := range s.riders {
		if rider.UserID == userID {
			return rider, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDispatchRepo) CountActiveOrdersByRider(ctx context.Context, riderID uuid.UUID) (int64, error) {
	return s.activeCount, nil
}

func (s *stubDispatchRepo) ClaimOrder(ctx context.Context, orderID, riderID uuid.UUID, updates map[string]any) (bool, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.Status != enums.OrderStatusPending || order.RiderID != nil {
		return false, nil
	}
	id := riderID
	order.RiderID = &id
	order.Status = enums.OrderStatusConfirmed
	return true, nil
}

func (s *stubDispatchRepo) CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	s.statusEvents = append(s.statusEvents, event)
	return nil
}

func (s *stubDispatchRepo) CreateTracking(ctx context.Context, row *models.DeliveryTracking) error {
	s.trackingRows = append(s.trackingRows, row)
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

func seedRider(repo *stubDispatchRepo, online bool) *models.Rider {
	rider := &models.Rider{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		TransportMode: enums.TransportModeBike,
		Status:        enums.RiderStatusActive,
		IsOnline:      online,
		CurrentLocation: &types.GeographyPoint{
			Lat: 6.6018,
			Lng: 3.3515,
		},
	}
	repo.riders[rider.ID] = rider
	return rider
}

func seedPendingOrder(repo *stubDispatchRepo) *models.Order {
	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      uuid.New(),
		VendorID:        uuid.New(),
		Status:          enums.OrderStatusPending,
		DistanceKM:      2.1,
		DropoffLocation: types.GeographyPoint{Lat: 6.62, Lng: 3.3515},
	}
	repo.orders[order.ID] = order
	return order
}

func newTestService(t *testing.T, repo Repository, sink *capturingOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, sink, config.DeliveryConfig{EstimatedPrepTime: 20 * time.Minute})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestAssign(t *testing.T) {
	repo := newStubDispatchRepo()
	rider := seedRider(repo, true)
	order := seedPendingOrder(repo)
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, sink)

	assigned, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, RiderUserID: rider.UserID})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if assigned.Status != enums.OrderStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", assigned.Status)
	}
	if assigned.RiderID == nil || *assigned.RiderID != rider.ID {
		t.Fatal("rider not recorded on order")
	}
	if assigned.EstimatedDeliveryTime == nil {
		t.Fatal("estimated delivery time not set")
	}
	if len(repo.statusEvents) != 1 || repo.statusEvents[0].ToStatus != enums.OrderStatusConfirmed {
		t.Fatalf("status event missing: %+v", repo.statusEvents)
	}
	if len(repo.trackingRows) != 1 {
		t.Fatalf("tracking seed missing, got %d rows", len(repo.trackingRows))
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventOrderAssigned {
		t.Fatalf("unexpected outbox events: %+v", sink.events)
	}
}

func TestAssignLosesRace(t *testing.T) {
	repo := newStubDispatchRepo()
	first := seedRider(repo, true)
	second := seedRider(repo, true)
	order := seedPendingOrder(repo)
	svc := newTestService(t, repo, &capturingOutbox{})

	if _, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, RiderUserID: first.UserID}); err != nil {
		t.Fatalf("first Assign() error = %v", err)
	}
	_, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, RiderUserID: second.UserID})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("error = %v, want conflict", err)
	}
	if *repo.orders[order.ID].RiderID != first.ID {
		t.Fatal("winner changed after losing claim")
	}
}

func TestAssignRejectsBusyRider(t *testing.T) {
	repo := newStubDispatchRepo()
	rider := seedRider(repo, true)
	order := seedPendingOrder(repo)
	repo.activeCount = 1
	svc := newTestService(t, repo, &capturingOutbox{})

	_, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, RiderUserID: rider.UserID})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestAssignRejectsOfflineRider(t *testing.T) {
	repo := newStubDispatchRepo()
	rider := seedRider(repo, false)
	order := seedPendingOrder(repo)
	svc := newTestService(t, repo, &capturingOutbox{})

	_, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, RiderUserID: rider.UserID})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestAssignRejectsUnverifiedRider(t *testing.T) {
	repo := newStubDispatchRepo()
	rider := seedRider(repo, true)
	rider.Status = enums.RiderStatusPendingVerification
	order := seedPendingOrder(repo)
	svc := newTestService(t, repo, &capturingOutbox{})

	_, err := svc.Assign(context.Background(), AssignInput{OrderID: order.ID, RiderUserID: rider.UserID})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("error = %v, want forbidden", err)
	}
}

func TestAvailableOrdersOnlyUnassigned(t *testing.T) {
	repo := newStubDispatchRepo()
	rider := seedRider(repo, true)
	seedPendingOrder(repo)
	taken := seedPendingOrder(repo)
	riderID := uuid.New()
	taken.RiderID = &riderID
	taken.Status = enums.OrderStatusConfirmed
	svc := newTestService(t, repo, &capturingOutbox{})

	list, err := svc.AvailableOrders(context.Background(), rider.UserID, pagination.Params{})
	if err != nil {
		t.Fatalf("AvailableOrders() error = %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(list.Items))
	}
}
