package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aglago/iselldata-backend/pkg/enums"
)

// Order records one purchase attempt. Orders are never deleted; the row is
// the audit trail for payment and delivery reconciliation.
type Order struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference  string    `gorm:"column:reference;not null;uniqueIndex:idx_orders_reference"`
	TrackingID string    `gorm:"column:tracking_id;not null;uniqueIndex:idx_orders_tracking_id"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`

	Network      enums.Network   `gorm:"column:network;type:text;not null"`
	PackageGB    int             `gorm:"column:package_gb;not null"`
	PriceCharged decimal.Decimal `gorm:"column:price_charged;type:numeric(12,2);not null"`

	PaymentStatus  enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	DeliveryStatus enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'pending'"`

	// UpstreamTransactionID is the idempotency key for fulfillment: it is
	// written at most once per order and carries a unique index so a racing
	// second write surfaces as a constraint violation.
	UpstreamTransactionID *string `gorm:"column:upstream_transaction_id;uniqueIndex:idx_orders_upstream_txn"`
	UpstreamPaymentID     *string `gorm:"column:upstream_payment_id"`
	ProviderReference     *string `gorm:"column:provider_reference;index"`
	FailureReason         *string `gorm:"column:failure_reason"`

	Customer *Customer `gorm:"foreignKey:CustomerID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
