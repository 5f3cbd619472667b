// Package downloads gates file downloads of purchased items behind a per-item quota.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/angelmondragon/soundmarket-backend/internal/catalog"
	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultMaxPerItem applies when no quota is configured.
const DefaultMaxPerItem = 3

var allowedExtensions = map[string]struct{}{
	".mp3": {},
	".wav": {},
	".ogg": {},
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Item is one purchased file with its quota usage.
type Item struct {
	OrderItemID    uuid.UUID  `json:"order_item_id"`
	OrderID        uuid.UUID  `json:"order_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	Title          string     `json:"title"`
	Downloads      int        `json:"downloads"`
	Remaining      int        `json:"remaining"`
	LastDownloaded *time.Time `json:"last_downloaded,omitempty"`
}

// Grant is an authorized download.
type Grant struct {
	OrderItemID uuid.UUID
	FileURL     string
	Remaining   int
}

type ServiceParams struct {
	Repo              Repository
	Catalog           catalog.Store
	TransactionRunner txRunner
	MaxPerItem        int
	Logger            *logger.Logger
}

type Service struct {
	repo       Repository
	catalog    catalog.Store
	tx         txRunner
	maxPerItem int
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("downloads repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	maxPerItem := params.MaxPerItem
	if maxPerItem <= 0 {
		maxPerItem = DefaultMaxPerItem
	}
	return &Service{
		repo:       params.Repo,
		catalog:    params.Catalog,
		tx:         params.TransactionRunner,
		maxPerItem: maxPerItem,
		logg:       params.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns the caller's purchased items with download counts.
func (s *Service) List(ctx context.Context, principal auth.Principal) ([]Item, error) {
	if err := auth.Require(principal, auth.CapDownload); err != nil {
		return nil, err
	}
	items, err := s.repo.ListPaidItems(ctx, principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchased items")
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	history, err := s.repo.History(ctx, principal.UserID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load download history")
	}

	counts := map[uuid.UUID]int{}
	last := map[uuid.UUID]time.Time{}
	for _, row := range history {
		counts[row.OrderItemID]++
		if row.DownloadTime.After(last[row.OrderItemID]) {
			last[row.OrderItemID] = row.DownloadTime
		}
	}

	out := make([]Item, 0, len(items))
	for _, item := range items {
		view := Item{
			OrderItemID: item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			Title:       item.Title,
			Downloads:   counts[item.ID],
			Remaining:   max(s.maxPerItem-counts[item.ID], 0),
		}
		if ts, ok := last[item.ID]; ok {
			view.LastDownloaded = &ts
		}
		out = append(out, view)
	}
	return out, nil
}

// Authorize checks ownership and quota, records the download and returns the file location.
func (s *Service) Authorize(ctx context.Context, principal auth.Principal, orderItemID uuid.UUID) (*Grant, error) {
	if err := auth.Require(principal, auth.CapDownload); err != nil {
		return nil, err
	}

	var grant *Grant
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.LockPaidItem(ctx, principal.UserID, orderItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "item was not purchased by this account")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load purchased item")
		}

		product, err := s.catalog.WithTx(tx).FindProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if err := checkFile(product); err != nil {
			return err
		}

		used, err := repo.CountDownloads(ctx, principal.UserID, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count downloads")
		}
		if int(used) >= s.maxPerItem {
			return pkgerrors.New(pkgerrors.CodeForbidden, "download limit reached").
				WithDetails(map[string]any{"limit": s.maxPerItem})
		}

		entry := &models.DownloadHistory{
			UserID:       principal.UserID,
			ProductID:    item.ProductID,
			OrderItemID:  item.ID,
			DownloadTime: s.now(),
		}
		if err := repo.Record(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record download")
		}

		grant = &Grant{
			OrderItemID: item.ID,
			FileURL:     product.FileURL,
			Remaining:   s.maxPerItem - int(used) - 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_item_id": orderItemID.String(),
			"remaining":     grant.Remaining,
		})
		s.logg.Info(logCtx, "download authorized")
	}
	return grant, nil
}

func checkFile(product *models.Product) error {
	raw := strings.TrimSpace(product.FileURL)
	if raw == "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "file not found")
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if _, ok := allowedExtensions[ext]; !ok {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported file type %q", ext)
	}
	return nil
}
