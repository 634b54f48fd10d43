package health

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/internal/delivery"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

const defaultWindow = 24 * time.Hour

// Classification thresholds. Error rate and latency must both hold for a
// tier; anything past degraded is down.
var (
	healthyMaxErrorRate   = 0.05
	healthyMaxAvgLatency  = 30 * time.Second
	degradedMaxErrorRate  = 0.20
	degradedMaxAvgLatency = 60 * time.Second
)

var (
	errDBRequired      = errors.New("health monitor db is required")
	errGatewayRequired = errors.New("health monitor gateway is required")
	errLoggerRequired  = errors.New("health monitor logger is required")
)

// NetworkHealth summarizes gateway behaviour for one network over the window.
type NetworkHealth struct {
	Network        enums.Network       `json:"network"`
	Calls          int64               `json:"calls"`
	SuccessRate    float64             `json:"success_rate"`
	AvgLatencyMS   int64               `json:"avg_latency_ms"`
	Classification enums.GatewayHealth `json:"classification"`
}

// Report is the admin dashboard health payload.
type Report struct {
	Window    string          `json:"window"`
	Networks  []NetworkHealth `json:"networks"`
	CheckedAt time.Time       `json:"checked_at"`
}

// BalanceChecker is the slice of the delivery adapter the monitor uses.
type BalanceChecker interface {
	CheckBalance(ctx context.Context) (delivery.Balance, error)
}

// Monitor aggregates logged gateway calls into per-network health. It is
// read-only and informational; nothing in the fulfillment workflow
// depends on it.
type Monitor struct {
	db      *gorm.DB
	gateway BalanceChecker
	window  time.Duration
	logger  *logger.Logger
}

func NewMonitor(db *gorm.DB, gateway BalanceChecker, window time.Duration, logg *logger.Logger) (*Monitor, error) {
	if db == nil {
		return nil, errDBRequired
	}
	if gateway == nil {
		return nil, errGatewayRequired
	}
	if logg == nil {
		return nil, errLoggerRequired
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Monitor{db: db, gateway: gateway, window: window, logger: logg}, nil
}

type networkAggregate struct {
	Network      enums.Network
	Calls        int64
	Successes    int64
	AvgLatencyMS float64
}

// Report aggregates the trailing window per network. Networks with no
// recorded calls classify as unknown rather than healthy.
func (m *Monitor) Report(ctx context.Context) (*Report, error) {
	since := time.Now().UTC().Add(-m.window)

	var aggregates []networkAggregate
	err := m.db.WithContext(ctx).
		Model(&models.GatewayCallLog{}).
		Select("network, COUNT(*) AS calls, SUM(CASE WHEN success THEN 1 ELSE 0 END) AS successes, AVG(latency_ms) AS avg_latency_ms").
		Where("created_at >= ?", since).
		Group("network").
		Find(&aggregates).Error
	if err != nil {
		return nil, err
	}

	byNetwork := make(map[enums.Network]networkAggregate, len(aggregates))
	for _, agg := range aggregates {
		byNetwork[agg.Network] = agg
	}

	report := &Report{
		Window:    m.window.String(),
		CheckedAt: time.Now().UTC(),
	}
	for _, network := range enums.Networks() {
		agg, ok := byNetwork[network]
		if !ok || agg.Calls == 0 {
			report.Networks = append(report.Networks, NetworkHealth{
				Network:        network,
				Classification: enums.GatewayHealthUnknown,
			})
			continue
		}
		successRate := float64(agg.Successes) / float64(agg.Calls)
		avgLatency := time.Duration(agg.AvgLatencyMS) * time.Millisecond
		report.Networks = append(report.Networks, NetworkHealth{
			Network:        network,
			Calls:          agg.Calls,
			SuccessRate:    successRate,
			AvgLatencyMS:   int64(agg.AvgLatencyMS),
			Classification: classify(successRate, avgLatency),
		})
	}
	return report, nil
}

// BalanceSnapshot fetches the live aggregator wallet balance for the
// admin dashboard.
func (m *Monitor) BalanceSnapshot(ctx context.Context) (delivery.Balance, error) {
	return m.gateway.CheckBalance(ctx)
}

func classify(successRate float64, avgLatency time.Duration) enums.GatewayHealth {
	errorRate := 1 - successRate
	switch {
	case errorRate <= healthyMaxErrorRate && avgLatency <= healthyMaxAvgLatency:
		return enums.GatewayHealthHealthy
	case errorRate <= degradedMaxErrorRate && avgLatency <= degradedMaxAvgLatency:
		return enums.GatewayHealthDegraded
	default:
		return enums.GatewayHealthDown
	}
}
