package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	"github.com/aglago/iselldata-backend/pkg/pagination"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  phone TEXT NOT NULL UNIQUE,
  name TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
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
);`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestFindOrCreateByPhoneDeduplicates(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.FindOrCreateByPhone(ctx, "0241234567", nil)
	require.NoError(t, err)

	name := "Ama"
	second, err := repo.FindOrCreateByPhone(ctx, " 0241234567 ", &name)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Name)
	assert.Equal(t, "Ama", *second.Name)

	var count int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListIncludesOrderCounts(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer, err := repo.FindOrCreateByPhone(ctx, "0551112223", nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		order := models.Order{
			ID:           uuid.New(),
			Reference:    "REF-" + uuid.NewString()[:8],
			TrackingID:   "TRK-" + uuid.NewString()[:8],
			CustomerID:   customer.ID,
			Network:      enums.NetworkMTN,
			PackageGB:    5,
			PriceCharged: decimal.RequireFromString("25.00"),
		}
		require.NoError(t, db.Create(&order).Error)
	}

	list, err := repo.List(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Customers, 1)
	assert.Equal(t, int64(2), list.Customers[0].OrderCount)
}
