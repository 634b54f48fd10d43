package controllers

import (
	"context"
	"net/http"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/internal/delivery"
	"github.com/aglago/iselldata-backend/internal/health"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

type HealthMonitor interface {
	Report(ctx context.Context) (*health.Report, error)
	BalanceSnapshot(ctx context.Context) (delivery.Balance, error)
}

func GatewayHealth(monitor HealthMonitor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if monitor == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "health monitor unavailable"))
			return
		}

		report, err := monitor.Report(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func GatewayBalance(monitor HealthMonitor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if monitor == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "health monitor unavailable"))
			return
		}

		balance, err := monitor.BalanceSnapshot(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"available": balance.Available,
			"amount":    balance.Amount.StringFixed(2),
			"currency":  balance.Currency,
		})
	}
}
