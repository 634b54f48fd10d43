package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/api/validators"
	"github.com/aglago/iselldata-backend/internal/fulfillment"
	"github.com/aglago/iselldata-backend/internal/orders"
	"github.com/aglago/iselldata-backend/pkg/db/models"
	"github.com/aglago/iselldata-backend/pkg/enums"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
	"github.com/aglago/iselldata-backend/pkg/pagination"
)

type ManualFulfillService interface {
	ManualFulfill(ctx context.Context, orderID uuid.UUID) (*fulfillment.FulfillOutcome, error)
}

type adminOrderView struct {
	ID                    uuid.UUID `json:"id"`
	Reference             string    `json:"reference"`
	TrackingID            string    `json:"tracking_id"`
	CustomerPhone         string    `json:"customer_phone,omitempty"`
	Network               string    `json:"network"`
	PackageGB             int       `json:"package_gb"`
	PriceCharged          string    `json:"price_charged"`
	PaymentStatus         string    `json:"payment_status"`
	DeliveryStatus        string    `json:"delivery_status"`
	UpstreamTransactionID *string   `json:"upstream_transaction_id,omitempty"`
	ProviderReference     *string   `json:"provider_reference,omitempty"`
	FailureReason         *string   `json:"failure_reason,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toAdminOrderView(order *models.Order) adminOrderView {
	view := adminOrderView{
		ID:                    order.ID,
		Reference:             order.Reference,
		TrackingID:            order.TrackingID,
		Network:               string(order.Network),
		PackageGB:             order.PackageGB,
		PriceCharged:          order.PriceCharged.StringFixed(2),
		PaymentStatus:         string(order.PaymentStatus),
		DeliveryStatus:        string(order.DeliveryStatus),
		UpstreamTransactionID: order.UpstreamTransactionID,
		ProviderReference:     order.ProviderReference,
		FailureReason:         order.FailureReason,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
	}
	if order.Customer != nil {
		view.CustomerPhone = order.Customer.Phone
	}
	return view
}

func AdminListOrders(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params := pagination.Params{
			Cursor: r.URL.Query().Get("cursor"),
			Limit:  limit,
		}

		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := repo.List(ctx, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]adminOrderView, 0, len(list.Orders))
		for i := range list.Orders {
			views = append(views, toAdminOrderView(&list.Orders[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":      views,
			"next_cursor": list.NextCursor,
		})
	}
}

func AdminGetOrder(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAdminOrderView(order))
	}
}

// AdminFulfillOrder is the manual entry point for the operator dashboard.
func AdminFulfillOrder(svc ManualFulfillService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := svc.ManualFulfill(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := map[string]any{"outcome": string(outcome.Outcome)}
		if outcome.Order != nil {
			resp["order"] = toAdminOrderView(outcome.Order)
		}
		responses.WriteSuccess(w, resp)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order id must be a uuid")
	}
	return orderID, nil
}

func parseOrderFilters(r *http.Request) (orders.ListFilters, error) {
	var filters orders.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("delivery_status")); raw != "" {
		status, err := enums.ParseDeliveryStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery_status filter")
		}
		filters.DeliveryStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status filter")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("network")); raw != "" {
		network, err := enums.ParseNetwork(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid network filter")
		}
		filters.Network = &network
	}
	return filters, nil
}
