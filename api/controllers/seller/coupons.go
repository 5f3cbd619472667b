package seller

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/soundmarket-backend/api/middleware"
	"github.com/angelmondragon/soundmarket-backend/api/responses"
	"github.com/angelmondragon/soundmarket-backend/api/validators"
	"github.com/angelmondragon/soundmarket-backend/internal/coupons"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
)

type createCouponRequest struct {
	Code            string          `json:"code" validate:"required,max=64,coupon_code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ProductID       uuid.UUID       `json:"product_id"`
	ValidUntil      string          `json:"valid_until" validate:"required"`
}

type updateCouponRequest struct {
	Code            *string          `json:"code" validate:"omitempty,max=64,coupon_code"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	ValidUntil      *string          `json:"valid_until"`
}

// CreateCoupon defines a coupon on one of the caller's products.
func CreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.ProductID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required"))
			return
		}

		coupon, err := svc.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), coupons.CreateInput{
			Code:            validators.SanitizeString(payload.Code, 64),
			DiscountPercent: payload.DiscountPercent,
			ProductID:       payload.ProductID,
			ValidUntil:      payload.ValidUntil,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupons.ToView(*coupon))
	}
}

// ListCoupons lists the caller's coupons, optionally for a single ?product_id=.
func ListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		productID, err := validators.ParseOptionalQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), middleware.PrincipalFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupons.ToViews(rows))
	}
}

// GetCoupon returns one of the caller's coupons.
func GetCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupons.ToView(*coupon))
	}
}

// UpdateCoupon applies a partial update to one of the caller's coupons.
func UpdateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Code != nil {
			code := validators.SanitizeString(*payload.Code, 64)
			payload.Code = &code
		}

		coupon, err := svc.Update(r.Context(), middleware.PrincipalFromContext(r.Context()), couponID, coupons.UpdateInput{
			Code:            payload.Code,
			DiscountPercent: payload.DiscountPercent,
			ValidUntil:      payload.ValidUntil,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupons.ToView(*coupon))
	}
}

// DeleteCoupon removes one of the caller's coupons.
func DeleteCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.PrincipalFromContext(r.Context()), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
