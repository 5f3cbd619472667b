package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/soundmarket-backend/api/middleware"
	"github.com/angelmondragon/soundmarket-backend/api/responses"
	"github.com/angelmondragon/soundmarket-backend/api/validators"
	"github.com/angelmondragon/soundmarket-backend/internal/downloads"
	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
)

type DownloadService interface {
	List(ctx context.Context, principal auth.Principal) ([]downloads.Item, error)
	Authorize(ctx context.Context, principal auth.Principal, orderItemID uuid.UUID) (*downloads.Grant, error)
}

// Downloads lists the caller's purchased items with their remaining download quota.
func Downloads(svc DownloadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "downloads service unavailable"))
			return
		}

		items, err := svc.List(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []downloads.Item{}
		}
		responses.WriteSuccess(w, items)
	}
}

// Download records a download and redirects to the purchased file.
func Download(svc DownloadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "downloads service unavailable"))
			return
		}

		orderItemID, err := validators.ParseUUIDParam(r, "orderItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := svc.Authorize(r.Context(), middleware.PrincipalFromContext(r.Context()), orderItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Redirect(w, r, grant.FileURL)
	}
}
