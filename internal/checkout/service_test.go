package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aglago/iselldata-backend/internal/customers"
	"github.com/aglago/iselldata-backend/internal/orders"
	"github.com/aglago/iselldata-backend/pkg/config"
	"github.com/aglago/iselldata-backend/pkg/db"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

func setupCheckout(t *testing.T) *Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	client, err := db.New(context.Background(), config.DBConfig{DSN: "file::memory:"}, true, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for _, stmt := range []string{
		`CREATE TABLE customers (
  id TEXT PRIMARY KEY,
  phone TEXT NOT NULL UNIQUE,
  name TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE orders (
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
	} {
		require.NoError(t, client.DB().Exec(stmt).Error)
	}

	service, err := NewService(client, orders.NewRepository(client.DB()), customers.NewRepository(client.DB()), logg)
	require.NoError(t, err)
	return service
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	service := setupCheckout(t)

	order, err := service.Checkout(context.Background(), Input{
		Phone:     "0241234567",
		Network:   enums.NetworkMTN,
		PackageGB: 5,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, order.Reference)
	assert.NotEmpty(t, order.TrackingID)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.DeliveryStatusPending, order.DeliveryStatus)
	// 22.00 wholesale with the storefront margin applied.
	assert.Equal(t, "25.96", order.PriceCharged.StringFixed(2))
	require.NotNil(t, order.Customer)
	assert.Equal(t, "0241234567", order.Customer.Phone)
}

func TestCheckoutReusesExistingCustomer(t *testing.T) {
	service := setupCheckout(t)
	ctx := context.Background()

	first, err := service.Checkout(ctx, Input{Phone: "0551112223", Network: enums.NetworkAirtelTigo, PackageGB: 10})
	require.NoError(t, err)
	second, err := service.Checkout(ctx, Input{Phone: "0551112223", Network: enums.NetworkMTN, PackageGB: 1})
	require.NoError(t, err)

	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.NotEqual(t, first.Reference, second.Reference)
}

func TestCheckoutRejectsUnsoldTier(t *testing.T) {
	service := setupCheckout(t)

	_, err := service.Checkout(context.Background(), Input{
		Phone:     "0241234567",
		Network:   enums.NetworkTelecel,
		PackageGB: 2,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePricingUnavailable))
}

func TestCheckoutRejectsUnknownNetwork(t *testing.T) {
	service := setupCheckout(t)

	_, err := service.Checkout(context.Background(), Input{
		Phone:     "0241234567",
		Network:   enums.Network("glo"),
		PackageGB: 5,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnsupportedNetwork))
}
