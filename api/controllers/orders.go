package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/internal/orders"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

type trackingView struct {
	TrackingID     string    `json:"tracking_id"`
	Network        string    `json:"network"`
	PackageGB      int       `json:"package_gb"`
	PaymentStatus  string    `json:"payment_status"`
	DeliveryStatus string    `json:"delivery_status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toTrackingView(order *models.Order) trackingView {
	return trackingView{
		TrackingID:     order.TrackingID,
		Network:        string(order.Network),
		PackageGB:      order.PackageGB,
		PaymentStatus:  string(order.PaymentStatus),
		DeliveryStatus: string(order.DeliveryStatus),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

// TrackOrder is the customer-facing status view. It exposes only the
// fields a customer needs; references and upstream ids stay internal.
func TrackOrder(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		trackingID := strings.TrimSpace(chi.URLParam(r, "trackingId"))
		if trackingID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking id is required"))
			return
		}

		order, err := repo.FindByTrackingID(ctx, trackingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toTrackingView(order))
	}
}
