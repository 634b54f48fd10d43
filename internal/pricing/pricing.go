package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
)

// Wholesale tier table in GHS, keyed by (network, GB). A combination absent
// from the table is not sold; callers must treat that as a hard stop.
var wholesaleGHS = map[enums.Network]map[int]string{
	enums.NetworkMTN: {
		1: "6.00", 2: "10.50", 3: "15.00", 4: "18.50", 5: "22.00",
		6: "26.00", 8: "34.00", 10: "41.50", 15: "60.00", 20: "78.00",
		25: "96.00", 30: "112.00", 40: "146.00", 50: "180.00", 100: "350.00",
	},
	enums.NetworkAirtelTigo: {
		1: "5.00", 2: "8.50", 3: "12.50", 4: "16.00", 5: "19.50",
		6: "23.00", 8: "30.00", 10: "36.50", 15: "53.00", 20: "69.00",
		25: "84.00", 30: "99.00", 40: "128.00", 50: "156.00", 100: "300.00",
	},
	enums.NetworkTelecel: {
		5: "21.50", 10: "40.00", 15: "58.00", 20: "75.00",
		25: "92.00", 30: "108.00", 40: "140.00", 50: "172.00", 100: "330.00",
	},
}

// Cost returns the exact wholesale cost for the (network, sizeGB) tier.
// There is no fallback: a missing tier returns CodePricingUnavailable and
// the caller must abort before any balance or purchase call.
func Cost(network enums.Network, sizeGB int) (decimal.Decimal, error) {
	tiers, ok := wholesaleGHS[network]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnsupportedNetwork, fmt.Sprintf("no price table for network %q", network))
	}
	raw, ok := tiers[sizeGB]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodePricingUnavailable,
			fmt.Sprintf("%dGB is not sold on %s", sizeGB, network)).
			WithDetails(map[string]any{"network": network, "size_gb": sizeGB})
	}
	return decimal.RequireFromString(raw), nil
}

// retailMarkup is the storefront margin applied over wholesale.
var retailMarkup = decimal.RequireFromString("1.18")

// Retail returns the customer-facing price for the tier.
func Retail(network enums.Network, sizeGB int) (decimal.Decimal, error) {
	cost, err := Cost(network, sizeGB)
	if err != nil {
		return decimal.Zero, err
	}
	return cost.Mul(retailMarkup).Round(2), nil
}

// Estimate interpolates a per-GB cost from the nearest lower tier. It is
// advisory only, for dashboard projections; it must never authorize
// spending against real balance.
func Estimate(network enums.Network, sizeGB int) (decimal.Decimal, error) {
	tiers, ok := wholesaleGHS[network]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnsupportedNetwork, fmt.Sprintf("no price table for network %q", network))
	}
	if sizeGB <= 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "size must be positive")
	}
	if raw, ok := tiers[sizeGB]; ok {
		return decimal.RequireFromString(raw), nil
	}

	nearest := 0
	for gb := range tiers {
		if gb <= sizeGB && gb > nearest {
			nearest = gb
		}
	}
	if nearest == 0 {
		for gb := range tiers {
			if nearest == 0 || gb < nearest {
				nearest = gb
			}
		}
	}
	perGB := decimal.RequireFromString(tiers[nearest]).Div(decimal.NewFromInt(int64(nearest)))
	return perGB.Mul(decimal.NewFromInt(int64(sizeGB))).Round(2), nil
}

// Tiers returns the sold sizes for the network, for the storefront catalog.
func Tiers(network enums.Network) []int {
	tiers, ok := wholesaleGHS[network]
	if !ok {
		return nil
	}
	sizes := make([]int, 0, len(tiers))
	for gb := range tiers {
		sizes = append(sizes, gb)
	}
	return sizes
}
