package controllers

import (
	"net/http"

	"github.com/aglago/iselldata-backend/api/responses"
	"github.com/aglago/iselldata-backend/api/validators"
	"github.com/aglago/iselldata-backend/internal/customers"
	"github.com/aglago/iselldata-backend/pkg/logger"
	"github.com/aglago/iselldata-backend/pkg/pagination"
)

func AdminListCustomers(repo customers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := repo.List(ctx, pagination.Params{
			Cursor: r.URL.Query().Get("cursor"),
			Limit:  limit,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
