package fulfillment

import (
	"github.com/shopspring/decimal"

	"github.com/aglago/iselldata-backend/internal/pricing"
	"github.com/aglago/iselldata-backend/pkg/enums"
)

// TablePricer resolves wholesale costs from the static tier table. Exact
// match only; the advisory estimate never authorizes spending.
type TablePricer struct{}

func (TablePricer) Cost(network enums.Network, sizeGB int) (decimal.Decimal, error) {
	return pricing.Cost(network, sizeGB)
}
