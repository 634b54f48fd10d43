package enums

// GatewayHealth classifies a network's recent delivery gateway behaviour.
type GatewayHealth string

const (
	GatewayHealthHealthy  GatewayHealth = "healthy"
	GatewayHealthDegraded GatewayHealth = "degraded"
	GatewayHealthDown     GatewayHealth = "down"
	GatewayHealthUnknown  GatewayHealth = "unknown"
)
