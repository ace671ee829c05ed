package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/internal/catalog"
	"github.com/tobiadeyinka/chowdash-backend/internal/wallet"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/geo"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

type stubOrdersRepo struct {
	orders       map[uuid.UUID]*models.Order
	statusEvents []*models.OrderStatusEvent
	updates      []map[string]any
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrdersRepo) CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	s.statusEvents = append(s.statusEvents, event)
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) FindByIDLocked(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if _, ok := s.orders[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.updates = append(s.updates, updates)
	return nil
}

func (s *stubOrdersRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters Filters) ([]models.Order, error) {
	var items []models.Order
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			items = append(items, *order)
		}
	}
	return items, nil
}

func (s *stubOrdersRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters Filters) ([]models.Order, error) {
	var items []models.Order
	for _, order := range s.orders {
		if order.VendorID == vendorID {
			items = append(items, *order)
		}
	}
	return items, nil
}

func (s *stubOrdersRepo) ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error) {
	var events []models.OrderStatusEvent
	for _, event := range s.statusEvents {
		if event.OrderID == orderID {
			events = append(events, *event)
		}
	}
	return events, nil
}

type stubCatalogGateway struct {
	vendor *models.Vendor
	priced *catalog.PricedSelection
}

func (s *stubCatalogGateway) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	if s.vendor == nil || s.vendor.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	return s.vendor, nil
}

func (s *stubCatalogGateway) PriceSelection(ctx context.Context, vendorID uuid.UUID, selection []catalog.SelectionItem) (*catalog.PricedSelection, error) {
	if s.priced == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	return s.priced, nil
}

type stubWalletGateway struct {
	debitErr error
	debits   []wallet.DebitInput
	credits  []wallet.CreditInput
}

func (s *stubWalletGateway) DebitForOrderTx(ctx context.Context, tx *gorm.DB, input wallet.DebitInput) (*models.WalletTransaction, error) {
	if s.debitErr != nil {
		return nil, s.debitErr
	}
	s.debits = append(s.debits, input)
	return &models.WalletTransaction{ID: uuid.New()}, nil
}

func (s *stubWalletGateway) CreditTx(ctx context.Context, tx *gorm.DB, input wallet.CreditInput) (*models.WalletTransaction, error) {
	s.credits = append(s.credits, input)
	return &models.WalletTransaction{ID: uuid.New()}, nil
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

func testPolicy() geo.FeePolicy {
	return geo.FeePolicy{
		BaseFee:     decimal.NewFromInt(500),
		PerKMFee:    decimal.NewFromInt(100),
		MaxRadiusKM: 5,
	}
}

func testDeliveryConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		MaxServiceRadiusKM: 5,
		NearDeliveryKM:     0.5,
		OTPTTL:             10 * time.Minute,
		EstimatedPrepTime:  20 * time.Minute,
	}
}

func testVendor() *models.Vendor {
	return &models.Vendor{
		ID:       uuid.New(),
		Name:     "Mama Put",
		Address:  "12 Allen Avenue, Ikeja",
		Location: types.GeographyPoint{Lat: 6.6018, Lng: 3.3515},
		IsOpen:   true,
	}
}

func newTestService(t *testing.T, repo Repository, cat catalogGateway, wal walletGateway, sink *capturingOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, sink, cat, wal, testPolicy(), testDeliveryConfig())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestCreateOrder(t *testing.T) {
	repo := newStubOrdersRepo()
	vendor := testVendor()
	subtotal := decimal.NewFromInt(3000)
	cat := &stubCatalogGateway{
		vendor: vendor,
		priced: &catalog.PricedSelection{
			Items:    []models.OrderItem{{ProductID: uuid.New(), ProductName: "Jollof Rice", UnitPrice: decimal.NewFromInt(1500), Quantity: 2, LineTotal: subtotal}},
			Subtotal: subtotal,
		},
	}
	wal := &stubWalletGateway{}
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, cat, wal, sink)

	customerID := uuid.New()
	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID:     customerID,
		VendorID:       vendor.ID,
		DropoffAddress: "4 Opebi Road, Ikeja",
		DropoffLat:     6.62,
		DropoffLng:     3.3515,
		Items:          []catalog.SelectionItem{{ProductID: uuid.New(), Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", order.PaymentStatus)
	}
	if order.DistanceKM <= 0 || order.DistanceKM > 5 {
		t.Fatalf("distance = %f", order.DistanceKM)
	}
	wantFee := testPolicy().DeliveryFee(order.DistanceKM)
	if !order.DeliveryFee.Equal(wantFee) {
		t.Fatalf("fee = %s, want %s", order.DeliveryFee, wantFee)
	}
	if !order.Total.Equal(subtotal.Add(wantFee).Round(2)) {
		t.Fatalf("total = %s", order.Total)
	}
	if order.EstimatedDeliveryTime == nil || !order.EstimatedDeliveryTime.After(*order.EstimatedPickupTime) {
		t.Fatal("estimated delivery must follow estimated pickup")
	}
	if len(wal.debits) != 1 || !wal.debits[0].Amount.Equal(order.Total) {
		t.Fatalf("unexpected debits: %+v", wal.debits)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("unexpected outbox events: %+v", sink.events)
	}
}

func TestCreateOrderOutsideServiceRadius(t *testing.T) {
	vendor := testVendor()
	cat := &stubCatalogGateway{vendor: vendor}
	svc := newTestService(t, newStubOrdersRepo(), cat, &stubWalletGateway{}, &capturingOutbox{})

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID:     uuid.New(),
		VendorID:       vendor.ID,
		DropoffAddress: "Far away",
		DropoffLat:     6.70,
		DropoffLng:     3.50,
		Items:          []catalog.SelectionItem{{ProductID: uuid.New(), Quantity: 1}},
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeOutOfRange {
		t.Fatalf("error = %v, want out of range", err)
	}
}

func TestCreateOrderVendorClosed(t *testing.T) {
	vendor := testVendor()
	vendor.IsOpen = false
	cat := &stubCatalogGateway{vendor: vendor}
	svc := newTestService(t, newStubOrdersRepo(), cat, &stubWalletGateway{}, &capturingOutbox{})

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID:     uuid.New(),
		VendorID:       vendor.ID,
		DropoffAddress: "4 Opebi Road",
		DropoffLat:     6.62,
		DropoffLng:     3.3515,
		Items:          []catalog.SelectionItem{{ProductID: uuid.New(), Quantity: 1}},
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestCreateOrderInsufficientFunds(t *testing.T) {
	vendor := testVendor()
	cat := &stubCatalogGateway{
		vendor: vendor,
		priced: &catalog.PricedSelection{Subtotal: decimal.NewFromInt(3000)},
	}
	wal := &stubWalletGateway{debitErr: pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance too low")}
	sink := &capturingOutbox{}
	svc := newTestService(t, newStubOrdersRepo(), cat, wal, sink)

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID:     uuid.New(),
		VendorID:       vendor.ID,
		DropoffAddress: "4 Opebi Road",
		DropoffLat:     6.62,
		DropoffLng:     3.3515,
		Items:          []catalog.SelectionItem{{ProductID: uuid.New(), Quantity: 1}},
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("error = %v, want insufficient funds", err)
	}
	if len(sink.events) != 0 {
		t.Fatalf("no events should be emitted, got %d", len(sink.events))
	}
}

func seedOrder(repo *stubOrdersRepo, status enums.OrderStatus) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		VendorID:      uuid.New(),
		Status:        status,
		PaymentStatus: enums.PaymentStatusPaid,
		Total:         decimal.NewFromInt(3500),
	}
	repo.orders[order.ID] = order
	return order
}

func TestTransitionRejectsInvalidEdge(t *testing.T) {
	repo := newStubOrdersRepo()
	order := seedOrder(repo, enums.OrderStatusPending)
	vendorID := order.VendorID
	svc := newTestService(t, repo, &stubCatalogGateway{}, &stubWalletGateway{}, &capturingOutbox{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusReadyForPickup,
		Actor:   Actor{UserID: uuid.New(), Role: enums.UserRoleVendor, VendorID: &vendorID},
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestTransitionPickedUpStampsTime(t *testing.T) {
	repo := newStubOrdersRepo()
	order := seedOrder(repo, enums.OrderStatusReadyForPickup)
	riderID := uuid.New()
	order.RiderID = &riderID
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, &stubCatalogGateway{}, &stubWalletGateway{}, sink)

	updated, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusPickedUp,
		Actor:   Actor{UserID: uuid.New(), Role: enums.UserRoleRider, RiderID: &riderID},
	})
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if updated.Status != enums.OrderStatusPickedUp {
		t.Fatalf("status = %s", updated.Status)
	}
	if updated.ActualPickupTime == nil {
		t.Fatal("actual pickup time not stamped")
	}
	if len(repo.statusEvents) != 1 || repo.statusEvents[0].ToStatus != enums.OrderStatusPickedUp {
		t.Fatalf("status event missing: %+v", repo.statusEvents)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("unexpected outbox events: %+v", sink.events)
	}
}

func TestTransitionRoleGuard(t *testing.T) {
	repo := newStubOrdersRepo()
	order := seedOrder(repo, enums.OrderStatusReadyForPickup)
	vendorID := order.VendorID
	svc := newTestService(t, repo, &stubCatalogGateway{}, &stubWalletGateway{}, &capturingOutbox{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusPickedUp,
		Actor:   Actor{UserID: uuid.New(), Role: enums.UserRoleVendor, VendorID: &vendorID},
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("error = %v, want forbidden", err)
	}
}

func TestTransitionCannotReachDeliveredDirectly(t *testing.T) {
	repo := newStubOrdersRepo()
	order := seedOrder(repo, enums.OrderStatusNearDelivery)
	riderID := uuid.New()
	order.RiderID = &riderID
	svc := newTestService(t, repo, &stubCatalogGateway{}, &stubWalletGateway{}, &capturingOutbox{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDelivered,
		Actor:   Actor{UserID: uuid.New(), Role: enums.UserRoleRider, RiderID: &riderID},
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestCancelRefundsPaidOrder(t *testing.T) {
	repo := newStubOrdersRepo()
	order := seedOrder(repo, enums.OrderStatusConfirmed)
	wal := &stubWalletGateway{}
	sink := &capturingOutbox{}
	svc := newTestService(t, repo, &stubCatalogGateway{}, wal, sink)

	canceled, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Reason:  "changed my mind",
		Actor:   Actor{UserID: order.CustomerID, Role: enums.UserRoleCustomer},
	})
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if canceled.Status != enums.OrderStatusCanceled {
		t.Fatalf("status = %s", canceled.Status)
	}
	if canceled.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("payment status = %s, want refunded", canceled.PaymentStatus)
	}
	if len(wal.credits) != 1 || !wal.credits[0].Amount.Equal(order.Total) {
		t.Fatalf("unexpected credits: %+v", wal.credits)
	}

	var sawCanceled bool
	for _, event := range sink.events {
		if event.EventType == enums.EventOrderCanceled {
			sawCanceled = true
		}
	}
	if !sawCanceled {
		t.Fatal("order_canceled event not emitted")
	}
}

func TestCancelByCustomerAfterPreparing(t *testing.T) {
	repo := newStubOrdersRepo()
	order := seedOrder(repo, enums.OrderStatusPreparing)
	svc := newTestService(t, repo, &stubCatalogGateway{}, &stubWalletGateway{}, &capturingOutbox{})

	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   Actor{UserID: order.CustomerID, Role: enums.UserRoleCustomer},
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want state conflict", err)
	}
}
