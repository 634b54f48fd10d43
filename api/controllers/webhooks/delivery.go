package webhooks

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/api/validators"
	"github.com/aglago/iselldata-backend/internal/orders"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

const deliverySuccessCode = "0000"

type deliveryStatusPush struct {
	Reference string `json:"reference" validate:"required"`
	Status    bool   `json:"status"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
	Phone     string `json:"phone"`
	Volume    string `json:"volume"`
	Network   string `json:"network"`
}

// DeliveryWebhook receives the aggregator's status pushes. Transitions
// are forward-only: a replayed or late push never moves an order back.
func DeliveryWebhook(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var push deliveryStatusPush
		if err := validators.DecodeJSONBody(r, &push); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ctx = logg.WithOrderRef(ctx, push.Reference)

		order, err := repo.FindByAnyReference(ctx, push.Reference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if push.Status && push.Code == deliverySuccessCode {
			advanced, advErr := repo.AdvanceDelivery(ctx, order.ID, enums.DeliveryStatusAccepted, enums.DeliveryStatusDelivered)
			if advErr != nil {
				responses.WriteError(ctx, logg, w, advErr)
				return
			}
			if !advanced {
				logg.Info(ctx, "delivery push replay or out-of-order, ignored")
			} else {
				logg.Info(ctx, "order delivered")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		reason := push.Reason
		if reason == "" {
			reason = "upstream reported delivery failure, code " + push.Code
		}
		if err := repo.MarkFailed(ctx, order.ID, reason); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Warn(logg.WithField(ctx, "reason", reason), "delivery failed upstream")
		responses.WriteSuccess(w, nil)
	}
}
