package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	"github.com/aglago/iselldata-backend/pkg/logger"
	"github.com/aglago/iselldata-backend/pkg/metrics"
)

// CallRecorder appends gateway call rows and emits prometheus metrics.
// Recording failures are logged and swallowed; telemetry must never alter
// a fulfillment outcome.
type CallRecorder struct {
	db      *gorm.DB
	metrics *metrics.GatewayMetrics
	logger  *logger.Logger
}

func NewCallRecorder(db *gorm.DB, gm *metrics.GatewayMetrics, logg *logger.Logger) *CallRecorder {
	return &CallRecorder{db: db, metrics: gm, logger: logg}
}

type callRecord struct {
	OrderID      *uuid.UUID
	Network      enums.Network
	Endpoint     string
	RequestBody  string
	ResponseBody string
	StatusCode   int
	Success      bool
	Latency      time.Duration
}

func (r *CallRecorder) record(ctx context.Context, rec callRecord) {
	if r == nil {
		return
	}

	r.metrics.ObserveDuration(rec.Endpoint, string(rec.Network), rec.Latency)
	if rec.Success {
		r.metrics.IncSuccess(rec.Endpoint, string(rec.Network))
	} else {
		r.metrics.IncFailure(rec.Endpoint, string(rec.Network))
	}

	if r.db == nil {
		return
	}
	row := models.GatewayCallLog{
		ID:           uuid.New(),
		OrderID:      rec.OrderID,
		Network:      rec.Network,
		Endpoint:     rec.Endpoint,
		RequestBody:  rec.RequestBody,
		ResponseBody: rec.ResponseBody,
		StatusCode:   rec.StatusCode,
		Success:      rec.Success,
		LatencyMS:    rec.Latency.Milliseconds(),
	}
	// The caller's context is the per-call timeout and is already expired
	// when the call timed out; the row has to land regardless.
	dbCtx := context.WithoutCancel(ctx)
	if err := r.db.WithContext(dbCtx).Create(&row).Error; err != nil && r.logger != nil {
		r.logger.Error(ctx, "gateway call log write failed", err)
	}
}
