package controllers

import (
	"context"
	"net/http"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/api/validators"
	"github.com/aglago/iselldata-backend/internal/checkout"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

type CheckoutService interface {
	Checkout(ctx context.Context, input checkout.Input) (*models.Order, error)
}

type checkoutRequest struct {
	Phone     string  `json:"phone" validate:"required,min=10,max=15"`
	Name      *string `json:"name" validate:"omitempty,max=120"`
	Network   string  `json:"network" validate:"required,oneof=mtn airteltigo telecel"`
	PackageGB int     `json:"package_gb" validate:"required,min=1,max=100"`
}

type checkoutResponse struct {
	Reference  string `json:"reference"`
	TrackingID string `json:"tracking_id"`
	Network    string `json:"network"`
	PackageGB  int    `json:"package_gb"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

// Checkout creates a pending order. Payment initialization happens
// client-side against the provider with the returned reference.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		network, err := enums.ParseNetwork(req.Network)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnsupportedNetwork, err, "unknown network"))
			return
		}

		order, err := svc.Checkout(ctx, checkout.Input{
			Phone:     req.Phone,
			Name:      req.Name,
			Network:   network,
			PackageGB: req.PackageGB,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Reference:  order.Reference,
			TrackingID: order.TrackingID,
			Network:    string(order.Network),
			PackageGB:  order.PackageGB,
			Amount:     order.PriceCharged.StringFixed(2),
			Currency:   "GHS",
		})
	}
}
