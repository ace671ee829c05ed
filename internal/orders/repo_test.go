package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  rider_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  subtotal NUMERIC NOT NULL,
  delivery_fee NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  distance_km NUMERIC NOT NULL,
  pickup_address TEXT NOT NULL,
  pickup_location TEXT NOT NULL,
  dropoff_address TEXT NOT NULL,
  dropoff_location TEXT NOT NULL,
  estimated_pickup_time DATETIME,
  estimated_delivery_time DATETIME,
  actual_pickup_time DATETIME,
  actual_delivery_time DATETIME,
  delivery_otp_hash TEXT,
  delivery_otp_expires_at DATETIME,
  cancel_reason TEXT,
  canceled_at DATETIME,
  notes TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);`
	items := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME NOT NULL
);`
	events := `
CREATE TABLE IF NOT EXISTS order_status_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  actor_id TEXT,
  actor_role TEXT,
  created_at DATETIME NOT NULL
);`
	for _, stmt := range []string{orders, items, events} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func createTestOrder(t *testing.T, repo Repository, customerID, vendorID uuid.UUID, created time.Time, status enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:             uuid.New(),
		CustomerID:     customerID,
		VendorID:       vendorID,
		Status:         status,
		PaymentStatus:  enums.PaymentStatusPaid,
		Subtotal:       decimal.NewFromInt(2500),
		DeliveryFee:    decimal.NewFromInt(600),
		Total:          decimal.NewFromInt(3100),
		DistanceKM:     2.4,
		PickupAddress:  "12 Vendor Close",
		PickupLocation: types.GeographyPoint{Lat: 6.45, Lng: 3.39},
		DropoffAddress: "4 Customer Street",
		DropoffLocation: types.GeographyPoint{
			Lat: 6.46,
			Lng: 3.41,
		},
		Items: []models.OrderItem{
			{
				ProductID:   uuid.New(),
				ProductName: "Jollof rice",
				UnitPrice:   decimal.NewFromInt(1250),
				Quantity:    2,
				LineTotal:   decimal.NewFromInt(2500),
			},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	saved, err := repo.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	return saved
}

func TestRepositoryCreateOrderAssignsItemIDs(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createTestOrder(t, repo, uuid.New(), uuid.New(), time.Now().UTC(), enums.OrderStatusPending)

	require.Len(t, order.Items, 1)
	assert.NotEqual(t, uuid.Nil, order.Items[0].ID)
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Jollof rice", found.Items[0].ProductName)
	assert.True(t, found.Total.Equal(decimal.NewFromInt(3100)))
}

func TestRepositoryListByCustomer_pagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	customerID := uuid.New()
	vendorID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var orders []*models.Order
	for i := 0; i < 3; i++ {
		orders = append(orders, createTestOrder(t, repo, customerID, vendorID, base.Add(time.Duration(i)*time.Minute), enums.OrderStatusPending))
	}

	page, err := repo.ListByCustomer(context.Background(), customerID, pagination.Params{Limit: 2}, Filters{})
	require.NoError(t, err)
	// Buffered fetch returns limit+1 rows so callers can detect more pages.
	require.Len(t, page, 3)
	assert.Equal(t, orders[2].ID, page[0].ID)
	assert.Equal(t, orders[1].ID, page[1].ID)

	cursor := pagination.NextCursor(page[1].CreatedAt, page[1].ID)
	rest, err := repo.ListByCustomer(context.Background(), customerID, pagination.Params{Limit: 2, Cursor: cursor}, Filters{})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, orders[0].ID, rest[0].ID)
}

func TestRepositoryListByVendor_statusFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	vendorID := uuid.New()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	createTestOrder(t, repo, uuid.New(), vendorID, base, enums.OrderStatusPending)
	delivered := createTestOrder(t, repo, uuid.New(), vendorID, base.Add(time.Minute), enums.OrderStatusDelivered)
	createTestOrder(t, repo, uuid.New(), uuid.New(), base.Add(2*time.Minute), enums.OrderStatusDelivered)

	status := enums.OrderStatusDelivered
	rows, err := repo.ListByVendor(context.Background(), vendorID, pagination.Params{}, Filters{Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, delivered.ID, rows[0].ID)
}

func TestRepositoryStatusEventsOrderedOldestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := createTestOrder(t, repo, uuid.New(), uuid.New(), time.Now().UTC(), enums.OrderStatusPending)

	base := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	transitions := []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusPreparing}
	from := enums.OrderStatusPending
	for i, to := range transitions {
		require.NoError(t, repo.CreateStatusEvent(context.Background(), &models.OrderStatusEvent{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
		from = to
	}

	events, err := repo.ListStatusEvents(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, enums.OrderStatusConfirmed, events[0].ToStatus)
	assert.Equal(t, enums.OrderStatusPreparing, events[1].ToStatus)
}

func TestRepositoryUpdateOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := createTestOrder(t, repo, uuid.New(), uuid.New(), time.Now().UTC(), enums.OrderStatusPending)

	riderID := uuid.New()
	require.NoError(t, repo.UpdateOrder(context.Background(), order.ID, map[string]any{
		"status":   enums.OrderStatusConfirmed,
		"rider_id": riderID,
	}))

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Status)
	require.NotNil(t, found.RiderID)
	assert.Equal(t, riderID, *found.RiderID)
}
