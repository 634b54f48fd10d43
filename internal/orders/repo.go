package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	"github.com/aglago/iselldata-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTrackingID(ctx context.Context, trackingID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("tracking_id = ?", trackingID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByAnyReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	query := r.db.WithContext(ctx).
		Preload("Customer").
		Where("reference = ? OR provider_reference = ? OR tracking_id = ?", reference, reference, reference)
	if id, err := uuid.Parse(reference); err == nil {
		query = r.db.WithContext(ctx).
			Preload("Customer").
			Where("reference = ? OR provider_reference = ? OR tracking_id = ? OR id = ?", reference, reference, reference, id)
	}
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) MarkProcessing(ctx context.Context, orderID uuid.UUID, status enums.DeliveryStatus, allowFailed bool) (bool, error) {
	blocked := []enums.DeliveryStatus{
		enums.DeliveryStatusProcessing,
		enums.DeliveryStatusAccepted,
		enums.DeliveryStatusDelivered,
	}
	if !allowFailed {
		blocked = append(blocked, enums.DeliveryStatusFailed)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("upstream_transaction_id IS NULL").
		Where("delivery_status NOT IN ?", blocked).
		Updates(map[string]any{
			"payment_status":  enums.PaymentStatusConfirmed,
			"delivery_status": status,
			"failure_reason":  nil,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetUpstreamTransaction(ctx context.Context, orderID uuid.UUID, transactionID string, paymentID *string, status enums.DeliveryStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("upstream_transaction_id IS NULL").
		Updates(map[string]any{
			"upstream_transaction_id": transactionID,
			"upstream_payment_id":     paymentID,
			"delivery_status":         status,
			"updated_at":              time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AdvanceDelivery(ctx context.Context, orderID uuid.UUID, expected, next enums.DeliveryStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("delivery_status = ?", expected).
		Updates(map[string]any{
			"delivery_status": next,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("delivery_status NOT IN ?", []enums.DeliveryStatus{
			enums.DeliveryStatusDelivered,
			enums.DeliveryStatusFailed,
		}).
		Updates(map[string]any{
			"delivery_status": enums.DeliveryStatusFailed,
			"failure_reason":  reason,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *repository) SetProviderReference(ctx context.Context, orderID uuid.UUID, providerReference string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("provider_reference", providerReference).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Customer").
		Order("created_at DESC, id DESC")

	if filters.DeliveryStatus != nil {
		query = query.Where("delivery_status = ?", *filters.DeliveryStatus)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.Network != nil {
		query = query.Where("network = ?", *filters.Network)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	if err := query.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &OrderList{Orders: rows}
	if len(rows) > limit {
		list.Orders = rows[:limit]
		last := list.Orders[len(list.Orders)-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &next
	}
	return list, nil
}
