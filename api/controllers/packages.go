package controllers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/internal/pricing"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

type packageView struct {
	SizeGB int    `json:"size_gb"`
	Price  string `json:"price"`
}

// ListPackages returns the sold tiers for one network with retail prices.
func ListPackages(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw := strings.TrimSpace(r.URL.Query().Get("network"))
		if raw == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "network query parameter is required"))
			return
		}
		network, err := enums.ParseNetwork(raw)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnsupportedNetwork, err, "unknown network"))
			return
		}

		sizes := pricing.Tiers(network)
		sort.Ints(sizes)

		views := make([]packageView, 0, len(sizes))
		for _, gb := range sizes {
			price, priceErr := pricing.Retail(network, gb)
			if priceErr != nil {
				continue
			}
			views = append(views, packageView{SizeGB: gb, Price: price.StringFixed(2)})
		}
		responses.WriteSuccess(w, map[string]any{
			"network":  string(network),
			"currency": "GHS",
			"packages": views,
		})
	}
}
