package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/soundmarket-backend/api/middleware"
	"github.com/angelmondragon/soundmarket-backend/api/responses"
	"github.com/angelmondragon/soundmarket-backend/api/validators"
	cartsvc "github.com/angelmondragon/soundmarket-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
)

type addRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

type cartResponse struct {
	Items []cartsvc.Item `json:"items"`
	Count int            `json:"count"`
}

// CartAdd places a product in the caller's cart.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.ProductID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required"))
			return
		}

		if err := svc.Add(r.Context(), middleware.PrincipalFromContext(r.Context()), payload.ProductID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"product_id": payload.ProductID})
	}
}

// CartFetch returns the caller's cart lines with the coupons each product offers.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		items, err := svc.View(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []cartsvc.Item{}
		}
		responses.WriteSuccess(w, cartResponse{Items: items, Count: len(items)})
	}
}

// CartRemove drops a product from the caller's cart.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), middleware.PrincipalFromContext(r.Context()), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"product_id": productID})
	}
}

// CartCount reports how many products sit in the caller's cart.
func CartCount(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		count, err := svc.Count(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"count": count})
	}
}
