package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/internal/fulfillment"
	"github.com/aglago/iselldata-backend/internal/payments"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

const paystackSignatureHeader = "X-Paystack-Signature"

type FulfillService interface {
	Fulfill(ctx context.Context, input fulfillment.FulfillInput) (*fulfillment.FulfillOutcome, error)
}

type SignatureValidator interface {
	ValidateWebhookSignature(body []byte, signature string) bool
}

// PaystackWebhook is the asynchronous entry point. The signature guards
// the whole handler: a mismatch rejects before any lookup or write.
func PaystackWebhook(svc FulfillService, validator SignatureValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if validator == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signature validator unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !validator.ValidateWebhookSignature(body, r.Header.Get(paystackSignatureHeader)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := payments.ParseWebhookEvent(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Every other event type is acknowledged and dropped; Paystack
		// retries unacknowledged deliveries.
		if !event.IsChargeSuccess() {
			if logg != nil {
				logg.Info(logg.WithField(ctx, "event", event.Event), "paystack event ignored")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		outcome, err := svc.Fulfill(ctx, fulfillment.FulfillInput{
			Reference: event.Data.Reference,
			Entry:     fulfillment.EntryWebhook,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome.Outcome)})
	}
}
