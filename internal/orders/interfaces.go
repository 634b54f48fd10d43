package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	"github.com/aglago/iselldata-backend/pkg/pagination"
)

// ListFilters narrows the admin order listing.
type ListFilters struct {
	DeliveryStatus *enums.DeliveryStatus
	PaymentStatus  *enums.PaymentStatus
	Network        *enums.Network
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// Repository exposes order persistence. Orders are never deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByTrackingID(ctx context.Context, trackingID string) (*models.Order, error)
	// FindByAnyReference matches the internal reference, the payment
	// provider's reference, the tracking id, or the raw order id. The
	// identifiers can diverge across payment flows, so lookups accept all.
	FindByAnyReference(ctx context.Context, reference string) (*models.Order, error)

	// MarkProcessing confirms payment and moves the order into the given
	// in-flight delivery status in a single guarded UPDATE. It reports
	// false when another fulfillment attempt got there first. allowFailed
	// reopens a failed order; only the operator trigger passes true,
	// automated entry points treat failed as terminal.
	MarkProcessing(ctx context.Context, orderID uuid.UUID, status enums.DeliveryStatus, allowFailed bool) (bool, error)

	// SetUpstreamTransaction persists the upstream ids and final delivery
	// status on an order that carries none yet. It reports false when the
	// order already holds an upstream transaction; a unique violation on
	// upstream_transaction_id means the id landed on another order.
	SetUpstreamTransaction(ctx context.Context, orderID uuid.UUID, transactionID string, paymentID *string, status enums.DeliveryStatus) (bool, error)

	// AdvanceDelivery moves delivery_status from expected to next only when
	// the row still holds expected (forward-only compare-and-swap).
	AdvanceDelivery(ctx context.Context, orderID uuid.UUID, expected, next enums.DeliveryStatus) (bool, error)

	MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error
	SetProviderReference(ctx context.Context, orderID uuid.UUID, providerReference string) error

	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}
