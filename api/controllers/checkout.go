package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/soundmarket-backend/api/middleware"
	"github.com/angelmondragon/soundmarket-backend/api/responses"
	"github.com/angelmondragon/soundmarket-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/soundmarket-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
)

type checkoutRequest struct {
	Coupons map[uuid.UUID]string `json:"coupons"`
}

// Checkout opens one hosted payment session per seller in the caller's cart.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Execute(r.Context(), middleware.PrincipalFromContext(r.Context()), checkoutsvc.Input{
			Coupons: payload.Coupons,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
