package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/soundmarket-backend/api/middleware"
	"github.com/angelmondragon/soundmarket-backend/api/responses"
	"github.com/angelmondragon/soundmarket-backend/api/validators"
	"github.com/angelmondragon/soundmarket-backend/internal/coupons"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
)

type applyCouponRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code" validate:"required,max=64,coupon_code"`
}

// ProductCoupons lists the redeemable coupons for a product in the caller's cart.
func ProductCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForCartProduct(r.Context(), middleware.PrincipalFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupons.ToViews(rows))
	}
}

// ApplyCoupon previews the discounted price of a cart product.
func ApplyCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.ProductID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required"))
			return
		}

		result, err := svc.Apply(r.Context(), middleware.PrincipalFromContext(r.Context()), coupons.ApplyInput{
			ProductID: payload.ProductID,
			Code:      validators.SanitizeString(payload.Code, 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
