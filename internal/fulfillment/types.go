package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aglago/iselldata-backend/internal/delivery"
	"github.com/aglago/iselldata-backend/internal/payments"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
)

// Entry identifies which path triggered fulfillment. All three run the
// same guard sequence; the entry only changes logging and the initial
// in-flight status.
type Entry string

const (
	EntryVerify  Entry = "verify"
	EntryWebhook Entry = "webhook"
	EntryManual  Entry = "manual"
)

// Outcome classifies how a fulfillment attempt ended without an error.
type Outcome string

const (
	// OutcomeFulfilled means the bundle was delivered in one call.
	OutcomeFulfilled Outcome = "fulfilled"
	// OutcomeAccepted means the upstream accepted the order and a status
	// webhook will report final delivery.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeAlreadyProcessed means a previous attempt fulfilled the order.
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeAlreadyInProgress means another attempt holds the order.
	OutcomeAlreadyInProgress Outcome = "already_in_progress"
	// OutcomeManualFulfillment means the order awaits operator action.
	OutcomeManualFulfillment Outcome = "manual_fulfillment"
	// OutcomePaymentPending means the payment has not completed, so
	// fulfillment was not attempted.
	OutcomePaymentPending Outcome = "payment_pending"
)

// FulfillInput names the order and the entry point for one attempt.
type FulfillInput struct {
	Reference string
	Entry     Entry
}

// FulfillOutcome is the result of one fulfillment attempt.
type FulfillOutcome struct {
	Outcome Outcome       `json:"outcome"`
	Order   *models.Order `json:"order,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Gateway is the slice of the delivery adapter the workflow needs.
type Gateway interface {
	CheckBalance(ctx context.Context) (delivery.Balance, error)
	Purchase(ctx context.Context, input delivery.PurchaseInput) (*delivery.DeliveryResult, error)
}

// PaymentVerifier confirms payment state with the payment provider.
type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) (*payments.VerifyResult, error)
}

// Notifier sends the customer and admin texts the workflow produces.
type Notifier interface {
	OrderConfirmed(ctx context.Context, phone string, gb int, network enums.Network, trackingURL string)
	OrderFailed(ctx context.Context, phone, reference string)
	AdminManualFulfillment(ctx context.Context, reference string, network enums.Network, phone string, gb int)
	AdminLowBalance(ctx context.Context, amount decimal.Decimal)
}

// Pricer resolves the wholesale cost charged against the gateway wallet.
type Pricer interface {
	Cost(network enums.Network, sizeGB int) (decimal.Decimal, error)
}

// OrderLocker is the per-order lease guarding concurrent attempts.
type OrderLocker interface {
	Acquire(ctx context.Context, orderID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, orderID uuid.UUID) error
}
