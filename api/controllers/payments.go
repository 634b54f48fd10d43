package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/internal/fulfillment"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

type VerifyService interface {
	VerifyAndFulfill(ctx context.Context, reference string) (*fulfillment.FulfillOutcome, error)
}

type verifyResponse struct {
	Outcome string        `json:"outcome"`
	Message string        `json:"message,omitempty"`
	Order   *trackingView `json:"order,omitempty"`
}

// VerifyPayment is the synchronous entry point: the storefront polls it
// after the provider redirect. A paid transaction triggers fulfillment
// inline; replays come back as idempotent successes.
func VerifyPayment(svc VerifyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verify service unavailable"))
			return
		}

		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required"))
			return
		}

		outcome, err := svc.VerifyAndFulfill(ctx, reference)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := verifyResponse{
			Outcome: string(outcome.Outcome),
			Message: outcome.Message,
		}
		if outcome.Order != nil {
			view := toTrackingView(outcome.Order)
			resp.Order = &view
		}
		responses.WriteSuccess(w, resp)
	}
}
