package fulfillment

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/internal/delivery"
	"github.com/aglago/iselldata-backend/internal/orders"
	"github.com/aglago/iselldata-backend/internal/payments"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

type stubGateway struct {
	balance      delivery.Balance
	balanceErr   error
	result       *delivery.DeliveryResult
	purchaseErr  error
	balanceCalls int
	purchases    int
}

func (g *stubGateway) CheckBalance(context.Context) (delivery.Balance, error) {
	g.balanceCalls++
	return g.balance, g.balanceErr
}

func (g *stubGateway) Purchase(context.Context, delivery.PurchaseInput) (*delivery.DeliveryResult, error) {
	g.purchases++
	return g.result, g.purchaseErr
}

type stubVerifier struct {
	result *payments.VerifyResult
	err    error
}

func (v *stubVerifier) Verify(context.Context, string) (*payments.VerifyResult, error) {
	return v.result, v.err
}

type stubNotifier struct {
	confirmed   int
	failed      int
	adminManual int
	adminLow    int
}

func (n *stubNotifier) OrderConfirmed(context.Context, string, int, enums.Network, string) {
	n.confirmed++
}
func (n *stubNotifier) OrderFailed(context.Context, string, string) { n.failed++ }
func (n *stubNotifier) AdminManualFulfillment(context.Context, string, enums.Network, string, int) {
	n.adminManual++
}
func (n *stubNotifier) AdminLowBalance(context.Context, decimal.Decimal) { n.adminLow++ }

type stubPricer struct {
	cost decimal.Decimal
	err  error
}

func (p *stubPricer) Cost(enums.Network, int) (decimal.Decimal, error) {
	return p.cost, p.err
}

type memoryLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func newMemoryLocks() *memoryLocks {
	return &memoryLocks{held: map[uuid.UUID]bool{}}
}

func (m *memoryLocks) Acquire(_ context.Context, orderID uuid.UUID, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[orderID] {
		return false, nil
	}
	m.held[orderID] = true
	return true, nil
}

func (m *memoryLocks) Release(_ context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, orderID)
	return nil
}

type fixture struct {
	db       *gorm.DB
	orders   orders.Repository
	gateway  *stubGateway
	verifier *stubVerifier
	notifier *stubNotifier
	pricer   *stubPricer
	locks    *memoryLocks
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
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
		`CREATE UNIQUE INDEX idx_orders_upstream_txn
  ON orders (upstream_transaction_id) WHERE upstream_transaction_id IS NOT NULL;`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	f := &fixture{
		db:     db,
		orders: orders.NewRepository(db),
		gateway: &stubGateway{
			balance: delivery.Balance{Available: true, Amount: decimal.RequireFromString("30.00"), Currency: "GHS"},
			result:  &delivery.DeliveryResult{Accepted: true, Code: "0000", TransactionID: "TX-" + uuid.NewString()[:8]},
		},
		verifier: &stubVerifier{result: &payments.VerifyResult{Paid: true, Status: "success"}},
		notifier: &stubNotifier{},
		pricer:   &stubPricer{cost: decimal.RequireFromString("22.00")},
		locks:    newMemoryLocks(),
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	service, err := NewService(ServiceParams{
		Orders:      f.orders,
		Gateway:     f.gateway,
		Payments:    f.verifier,
		Notifier:    f.notifier,
		Pricer:      f.pricer,
		Locks:       f.locks,
		TrackingURL: func(id string) string { return "https://iselldata.com/track/" + id },
		Logger:      logg,
	})
	require.NoError(t, err)
	f.service = service
	return f
}

func (f *fixture) seedOrder(t *testing.T, mutate func(*models.Order)) *models.Order {
	t.Helper()

	customer := models.Customer{ID: uuid.New(), Phone: "0241" + uuid.NewString()[:6]}
	require.NoError(t, f.db.Create(&customer).Error)

	order := &models.Order{
		ID:           uuid.New(),
		Reference:    "GD" + uuid.NewString()[:6],
		TrackingID:   "TRK-" + uuid.NewString()[:8],
		CustomerID:   customer.ID,
		Network:      enums.NetworkMTN,
		PackageGB:    5,
		PriceCharged: decimal.RequireFromString("25.00"),
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func TestFulfillHappyPathThenIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, nil)

	outcome, err := f.service.VerifyAndFulfill(ctx, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome.Outcome)
	assert.Equal(t, 1, f.gateway.purchases)
	assert.Equal(t, 1, f.notifier.confirmed)

	reloaded, err := f.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusAccepted, reloaded.DeliveryStatus)
	require.NotNil(t, reloaded.UpstreamTransactionID)

	// The second verify call must not reach the gateway again.
	replay, err := f.service.VerifyAndFulfill(ctx, order.Reference)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, replay.Outcome)
	assert.Equal(t, 1, f.gateway.purchases)
	assert.Equal(t, 1, f.notifier.confirmed)
}

func TestFulfillDirectFlowReportsDelivered(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, func(o *models.Order) {
		o.Network = enums.NetworkAirtelTigo
	})

	outcome, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: order.Reference, Entry: EntryWebhook})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, outcome.Outcome)
	assert.Equal(t, enums.DeliveryStatusDelivered, outcome.Order.DeliveryStatus)
}

func TestFulfillPricingFailureStopsBeforeAnyGatewayCall(t *testing.T) {
	f := newFixture(t)
	f.pricer.err = pkgerrors.New(pkgerrors.CodePricingUnavailable, "no tier")
	order := f.seedOrder(t, nil)

	_, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: order.Reference, Entry: EntryVerify})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePricingUnavailable))
	assert.Zero(t, f.gateway.balanceCalls)
	assert.Zero(t, f.gateway.purchases)
	assert.Zero(t, f.notifier.confirmed)

	reloaded, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusFailed, reloaded.DeliveryStatus)
}

func TestFulfillShortBalanceStopsBeforePurchase(t *testing.T) {
	f := newFixture(t)
	f.gateway.balance = delivery.Balance{Available: true, Amount: decimal.RequireFromString("10.00"), Currency: "GHS"}
	order := f.seedOrder(t, nil)

	_, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: order.Reference, Entry: EntryVerify})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance))
	assert.Equal(t, 1, f.gateway.balanceCalls)
	assert.Zero(t, f.gateway.purchases)
	// Cost containment: the customer is not texted about a balance abort.
	assert.Zero(t, f.notifier.confirmed)
	assert.Zero(t, f.notifier.failed)
	assert.Equal(t, 1, f.notifier.adminLow)

	reloaded, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusFailed, reloaded.DeliveryStatus)
}

func TestFulfillUpstreamRejectionNotifiesCustomer(t *testing.T) {
	f := newFixture(t)
	f.gateway.result = &delivery.DeliveryResult{Accepted: false, Code: "1102", RawMessage: "out of stock"}
	order := f.seedOrder(t, nil)

	_, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: order.Reference, Entry: EntryWebhook})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUpstreamRejected))
	assert.Equal(t, 1, f.notifier.failed)
	assert.Zero(t, f.notifier.confirmed)

	reloaded, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusFailed, reloaded.DeliveryStatus)
}

func TestFulfillTelecelBypassesGateway(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, func(o *models.Order) {
		o.Network = enums.NetworkTelecel
		o.PackageGB = 10
	})

	outcome, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: order.Reference, Entry: EntryWebhook})
	require.NoError(t, err)
	assert.Equal(t, OutcomeManualFulfillment, outcome.Outcome)
	assert.Zero(t, f.gateway.balanceCalls)
	assert.Zero(t, f.gateway.purchases)
	assert.Equal(t, 1, f.notifier.adminManual)

	reloaded, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusPlaced, reloaded.DeliveryStatus)
}

func TestFulfillInFlightOrderShortCircuits(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, func(o *models.Order) {
		o.DeliveryStatus = enums.DeliveryStatusProcessing
	})

	outcome, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: order.Reference, Entry: EntryManual})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyInProgress, outcome.Outcome)
	assert.Zero(t, f.gateway.purchases)
}

func TestFulfillRespectsHeldLease(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, nil)

	held, err := f.locks.Acquire(context.Background(), order.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	outcome, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: order.Reference, Entry: EntryVerify})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyInProgress, outcome.Outcome)
	assert.Zero(t, f.gateway.purchases)
}

func TestVerifyAndFulfillUnpaidLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	f.verifier.result = &payments.VerifyResult{Paid: false, Status: "abandoned"}
	order := f.seedOrder(t, nil)

	outcome, err := f.service.VerifyAndFulfill(context.Background(), order.Reference)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaymentPending, outcome.Outcome)
	assert.Zero(t, f.gateway.purchases)

	reloaded, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, reloaded.PaymentStatus)
	assert.Equal(t, enums.DeliveryStatusPending, reloaded.DeliveryStatus)
}

func TestManualFulfillRequiresConfirmedPayment(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, nil)

	_, err := f.service.ManualFulfill(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, f.gateway.purchases)
}

func TestManualFulfillReplaysFailedOrder(t *testing.T) {
	f := newFixture(t)
	reason := "gateway balance 10 below cost 22"
	order := f.seedOrder(t, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusConfirmed
		o.DeliveryStatus = enums.DeliveryStatusFailed
		o.FailureReason = &reason
	})

	// The wallet was topped up since the failure; the operator retries.
	outcome, err := f.service.ManualFulfill(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome.Outcome)
	assert.Equal(t, 1, f.gateway.purchases)
	assert.Equal(t, 1, f.notifier.confirmed)

	reloaded, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusAccepted, reloaded.DeliveryStatus)
	assert.Nil(t, reloaded.FailureReason)
	require.NotNil(t, reloaded.UpstreamTransactionID)
}

func TestFulfillVerifyEntryLeavesFailedOrderAlone(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusConfirmed
		o.DeliveryStatus = enums.DeliveryStatusFailed
	})

	outcome, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: order.Reference, Entry: EntryVerify})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyInProgress, outcome.Outcome)
	assert.Zero(t, f.gateway.purchases)

	reloaded, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusFailed, reloaded.DeliveryStatus)
}

func TestManualFulfillPlacesTelecelOrder(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, func(o *models.Order) {
		o.Network = enums.NetworkTelecel
		o.PaymentStatus = enums.PaymentStatusConfirmed
	})

	outcome, err := f.service.ManualFulfill(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeManualFulfillment, outcome.Outcome)
	assert.Equal(t, 1, f.notifier.adminManual)
}

func TestFulfillUnknownReference(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Fulfill(context.Background(), FulfillInput{Reference: "nope", Entry: EntryVerify})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestVerifyAndFulfillPropagatesVerifyError(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = errors.New("paystack down")

	_, err := f.service.VerifyAndFulfill(context.Background(), "GD123")
	require.Error(t, err)
	assert.Zero(t, f.gateway.purchases)
}
