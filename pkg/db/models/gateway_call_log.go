package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aglago/iselldata-backend/pkg/enums"
)

// GatewayCallLog is an append-only record of each outbound call to the
// delivery aggregator. Rows feed the health monitor and are never mutated.
type GatewayCallLog struct {
	ID      uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID *uuid.UUID `gorm:"column:order_id;type:uuid;index"`

	Network      enums.Network `gorm:"column:network;type:text;not null;index"`
	Endpoint     string        `gorm:"column:endpoint;not null"`
	RequestBody  string        `gorm:"column:request_body"`
	ResponseBody string        `gorm:"column:response_body"`
	StatusCode   int           `gorm:"column:status_code;not null"`
	Success      bool          `gorm:"column:success;not null"`
	LatencyMS    int64         `gorm:"column:latency_ms;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
}
