package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is deduplicated by phone number and owns zero or more orders.
type Customer struct {
	ID    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Phone string    `gorm:"column:phone;not null;uniqueIndex:idx_customers_phone"`
	Name  *string   `gorm:"column:name"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
