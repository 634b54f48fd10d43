package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const defaultOrderLockTTL = 60 * time.Second

// OrderLocker is the surface the fulfillment workflow needs: a best-effort
// per-order lease that closes the window between the duplicate check and the
// status write when two entry points race on the same order.
type OrderLocker interface {
	Acquire(ctx context.Context, orderID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, orderID uuid.UUID) error
}

// OrderLock implements OrderLocker on top of SetNX.
type OrderLock struct {
	client *Client
}

// NewOrderLock builds the per-order lease helper.
func NewOrderLock(client *Client) *OrderLock {
	return &OrderLock{client: client}
}

// Acquire takes the lease for the order. A false return means another
// fulfillment attempt currently holds it.
func (l *OrderLock) Acquire(ctx context.Context, orderID uuid.UUID, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = defaultOrderLockTTL
	}
	return l.client.SetNX(ctx, l.client.OrderLockKey(orderID.String()), "1", ttl)
}

// Release drops the lease. Safe to call when the lease already expired.
func (l *OrderLock) Release(ctx context.Context, orderID uuid.UUID) error {
	return l.client.Del(ctx, l.client.OrderLockKey(orderID.String()))
}
