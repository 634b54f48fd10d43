package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aglago/iselldata-backend/api/responses"
	pkgerrors "github.com/aglago/iselldata-backend/pkg/errors"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKey gates the operator routes on a shared header key.
func AdminKey(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if strings.TrimSpace(expected) == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin key not configured"))
				return
			}

			provided := strings.TrimSpace(r.Header.Get(adminKeyHeader))
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
