package customers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/pagination"
)

// CustomerSummary is the admin listing row: a customer plus order volume.
type CustomerSummary struct {
	models.Customer
	OrderCount int64 `json:"order_count"`
}

// CustomerList is one page of customer summaries.
type CustomerList struct {
	Customers  []CustomerSummary `json:"customers"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// Repository exposes customer persistence. Customers are deduplicated by
// phone number; an order always references exactly one customer row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrCreateByPhone(ctx context.Context, phone string, name *string) (*models.Customer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, params pagination.Params) (*CustomerList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrCreateByPhone(ctx context.Context, phone string, name *string) (*models.Customer, error) {
	phone = strings.TrimSpace(phone)

	var customer models.Customer
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&customer).Error
	if err == nil {
		if name != nil && customer.Name == nil {
			customer.Name = name
			if updateErr := r.db.WithContext(ctx).Model(&customer).Update("name", name).Error; updateErr != nil {
				return nil, updateErr
			}
		}
		return &customer, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	customer = models.Customer{ID: uuid.New(), Phone: phone, Name: name}
	if createErr := r.db.WithContext(ctx).Create(&customer).Error; createErr != nil {
		// A concurrent checkout may have created the same phone first.
		var existing models.Customer
		if findErr := r.db.WithContext(ctx).Where("phone = ?", phone).First(&existing).Error; findErr == nil {
			return &existing, nil
		}
		return nil, createErr
	}
	return &customer, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) (*CustomerList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Select("customers.*, COUNT(orders.id) AS order_count").
		Joins("LEFT JOIN orders ON orders.customer_id = customers.id").
		Group("customers.id").
		Order("customers.created_at DESC, customers.id DESC")

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(customers.created_at < ?) OR (customers.created_at = ? AND customers.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []CustomerSummary
	if err := query.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &CustomerList{Customers: rows}
	if len(rows) > limit {
		list.Customers = rows[:limit]
		last := list.Customers[len(list.Customers)-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &next
	}
	return list, nil
}
