package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/aglago/iselldata-backend/pkg/db"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	"github.com/aglago/iselldata-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	customers := `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  phone TEXT NOT NULL UNIQUE,
  name TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  tracking_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  network TEXT NOT NULL,
  package_gb INTEGER NOT NULL,
  price_charged TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  delivery_status TEXT NOT NULL DEFAULT 'pending',
  upstream_transaction_id TEXT,
  upstream_payment_id TEXT,
  provider_reference TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	upstreamIdx := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_upstream_txn
  ON orders (upstream_transaction_id) WHERE upstream_transaction_id IS NOT NULL;`

	for _, stmt := range []string{customers, orders, upstreamIdx} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()

	customer := models.Customer{ID: uuid.New(), Phone: "0241" + uuid.NewString()[:6]}
	require.NoError(t, db.Create(&customer).Error)

	order := &models.Order{
		ID:           uuid.New(),
		Reference:    "REF-" + uuid.NewString()[:8],
		TrackingID:   "TRK-" + uuid.NewString()[:8],
		CustomerID:   customer.ID,
		Network:      enums.NetworkMTN,
		PackageGB:    5,
		PriceCharged: decimal.RequireFromString("25.00"),
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestFindByAnyReference(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	providerRef := "PSK-777"
	order := seedOrder(t, db, func(o *models.Order) {
		o.ProviderReference = &providerRef
	})

	byRef, err := repo.FindByAnyReference(ctx, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byRef.ID)

	byProvider, err := repo.FindByAnyReference(ctx, providerRef)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byProvider.ID)

	byTracking, err := repo.FindByAnyReference(ctx, order.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byTracking.ID)

	byID, err := repo.FindByAnyReference(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, order.ID, byID.ID)

	_, err = repo.FindByAnyReference(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMarkProcessingGuardsAgainstSecondAttempt(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, func(o *models.Order) {
		o.DeliveryStatus = enums.DeliveryStatusPending
	})

	ok, err := repo.MarkProcessing(ctx, order.ID, enums.DeliveryStatusProcessing, false)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusConfirmed, reloaded.PaymentStatus)
	assert.Equal(t, enums.DeliveryStatusProcessing, reloaded.DeliveryStatus)

	// A racing second attempt sees the updated row and loses.
	ok, err = repo.MarkProcessing(ctx, order.ID, enums.DeliveryStatusProcessing, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkProcessingFailedOrderNeedsAllowFailed(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	reason := "gateway balance 10 below cost 22"
	order := seedOrder(t, db, func(o *models.Order) {
		o.DeliveryStatus = enums.DeliveryStatusFailed
		o.FailureReason = &reason
	})

	ok, err := repo.MarkProcessing(ctx, order.ID, enums.DeliveryStatusProcessing, false)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.MarkProcessing(ctx, order.ID, enums.DeliveryStatusPlaced, true)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusPlaced, reloaded.DeliveryStatus)
	assert.Nil(t, reloaded.FailureReason)
}

func TestMarkProcessingRefusesFulfilledOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	txn := "UP-123"
	order := seedOrder(t, db, func(o *models.Order) {
		o.UpstreamTransactionID = &txn
	})

	ok, err := repo.MarkProcessing(ctx, order.ID, enums.DeliveryStatusProcessing, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetUpstreamTransactionUniqueViolation(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := seedOrder(t, db, nil)
	second := seedOrder(t, db, nil)

	set, err := repo.SetUpstreamTransaction(ctx, first.ID, "UP-1", nil, enums.DeliveryStatusAccepted)
	require.NoError(t, err)
	assert.True(t, set)

	_, err = repo.SetUpstreamTransaction(ctx, second.ID, "UP-1", nil, enums.DeliveryStatusAccepted)
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err, "idx_orders_upstream_txn"))
}

func TestSetUpstreamTransactionSetsAtMostOncePerOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, nil)

	set, err := repo.SetUpstreamTransaction(ctx, order.ID, "UP-7", nil, enums.DeliveryStatusAccepted)
	require.NoError(t, err)
	assert.True(t, set)

	// A second write against the same order leaves the first id in place.
	set, err = repo.SetUpstreamTransaction(ctx, order.ID, "UP-8", nil, enums.DeliveryStatusDelivered)
	require.NoError(t, err)
	assert.False(t, set)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.UpstreamTransactionID)
	assert.Equal(t, "UP-7", *reloaded.UpstreamTransactionID)
	assert.Equal(t, enums.DeliveryStatusAccepted, reloaded.DeliveryStatus)
}

func TestAdvanceDeliveryIsCompareAndSwap(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, func(o *models.Order) {
		o.DeliveryStatus = enums.DeliveryStatusAccepted
	})

	ok, err := repo.AdvanceDelivery(ctx, order.ID, enums.DeliveryStatusAccepted, enums.DeliveryStatusDelivered)
	require.NoError(t, err)
	assert.True(t, ok)

	// Replaying the same push finds the row already advanced.
	ok, err = repo.AdvanceDelivery(ctx, order.ID, enums.DeliveryStatusAccepted, enums.DeliveryStatusDelivered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkFailedSkipsTerminalStates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, func(o *models.Order) {
		o.DeliveryStatus = enums.DeliveryStatusDelivered
	})

	require.NoError(t, repo.MarkFailed(ctx, order.ID, "late failure"))

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusDelivered, reloaded.DeliveryStatus)
	assert.Nil(t, reloaded.FailureReason)
}

func TestListFiltersAndPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedOrder(t, db, func(o *models.Order) {
			o.DeliveryStatus = enums.DeliveryStatusFailed
		})
	}
	seedOrder(t, db, func(o *models.Order) {
		o.DeliveryStatus = enums.DeliveryStatusDelivered
	})

	failed := enums.DeliveryStatusFailed
	list, err := repo.List(ctx, pagination.Params{Limit: 2}, ListFilters{DeliveryStatus: &failed})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
	require.NotNil(t, list.NextCursor)

	rest, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: *list.NextCursor}, ListFilters{DeliveryStatus: &failed})
	require.NoError(t, err)
	assert.Len(t, rest.Orders, 1)
	assert.Nil(t, rest.NextCursor)
}
