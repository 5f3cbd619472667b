// Package seller serves the seller dashboard: payouts, paid orders, sales and coupons.
package seller

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/soundmarket-backend/api/middleware"
	"github.com/angelmondragon/soundmarket-backend/api/responses"
	"github.com/angelmondragon/soundmarket-backend/internal/payouts"
	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
)

type PayoutLister interface {
	List(ctx context.Context, principal auth.Principal, status string) ([]payouts.View, error)
}

// Payouts lists the caller's payouts, optionally filtered by ?status=.
func Payouts(svc PayoutLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		status := strings.TrimSpace(r.URL.Query().Get("status"))
		views, err := svc.List(r.Context(), middleware.PrincipalFromContext(r.Context()), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if views == nil {
			views = []payouts.View{}
		}
		responses.WriteSuccess(w, views)
	}
}
