package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/soundmarket-backend/internal/cart"
	"github.com/angelmondragon/soundmarket-backend/internal/catalog"
	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/soundmarket-backend/pkg/pagination"
	"github.com/angelmondragon/soundmarket-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers the buyer and seller views of the order ledger.
type Service interface {
	Cancel(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderView, error)
	CancelPending(ctx context.Context, principal auth.Principal) (int, error)
	Retry(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*RetryResult, error)
	List(ctx context.Context, principal auth.Principal, params pagination.Params) (*pagination.Page[OrderView], error)
	Detail(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderView, error)
	SellerOrders(ctx context.Context, principal auth.Principal, params pagination.Params) (*pagination.Page[OrderView], error)
	SalesReport(ctx context.Context, principal auth.Principal) ([]ProductSales, error)
}

// ServiceParams bundles the order service dependencies.
type ServiceParams struct {
	Repo              Repository
	Cart              cart.Repository
	Catalog           catalog.Store
	Gateway           stripe.SessionGateway
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Settings          SessionSettings
	Logger            *logger.Logger
}

type service struct {
	repo     Repository
	cart     cart.Repository
	catalog  catalog.Store
	gateway  stripe.SessionGateway
	tx       txRunner
	outbox   outbox.Emitter
	settings SessionSettings
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("session gateway required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     params.Repo,
		cart:     params.Cart,
		catalog:  params.Catalog,
		gateway:  params.Gateway,
		tx:       params.TransactionRunner,
		outbox:   params.Outbox,
		settings: params.Settings,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Cancel moves a pending order to cancelled and drops that order's products from the cart.
func (s *service) Cancel(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderView, error) {
	if err := auth.Require(principal, auth.CapManageOwnOrders); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).LockByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if !ownsOrder(principal, order) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "only pending orders can be cancelled; current status %s", order.Status)
		}
		if err := s.cancelLocked(ctx, tx, principal, order, "buyer_cancelled"); err != nil {
			return err
		}
		result = ToView(*order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelPending cancels every pending order of the buyer, clearing each order's products
// from the cart.
func (s *service) CancelPending(ctx context.Context, principal auth.Principal) (int, error) {
	if err := auth.Require(principal, auth.CapManageOwnOrders); err != nil {
		return 0, err
	}
	cancelled := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		pending, err := s.repo.WithTx(tx).LockPendingByBuyer(ctx, principal.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pending orders")
		}
		if len(pending) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no pending order found")
		}
		for i := range pending {
			if err := s.cancelLocked(ctx, tx, principal, &pending[i], "buyer_cancelled_pending"); err != nil {
				return err
			}
			cancelled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, principal auth.Principal, order *models.Order, reason string) error {
	now := s.now()
	err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now

	if _, err := s.cart.WithTx(tx).RemoveProducts(ctx, order.BuyerID, order.ProductIDs()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cancelled products from cart")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCanceled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: string(principal.Role)},
		Data: payloads.OrderCanceledEvent{
			OrderID:    order.ID,
			BuyerID:    order.BuyerID,
			CanceledAt: now,
			Reason:     reason,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order canceled")
	}
	return nil
}

// Retry opens a fresh payment session for a pending order using its stored item prices.
func (s *service) Retry(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*RetryResult, error) {
	if err := auth.Require(principal, auth.CapManageOwnOrders); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result RetryResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if !ownsOrder(principal, order) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "only pending orders can be retried; current status %s", order.Status)
		}
		if len(order.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
		}
		sellerID := order.Items[0].SellerID
		for _, item := range order.Items[1:] {
			if item.SellerID != sellerID {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "all items in the order must belong to the same seller")
			}
		}

		seller, err := s.catalog.WithTx(tx).FindUser(ctx, sellerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
		}
		if seller == nil || !seller.HasPayoutDestination() {
			return pkgerrors.New(pkgerrors.CodeValidation, "seller does not have a payout destination")
		}

		req, err := SessionRequestFor(order, *seller.StripeAccountID, s.settings)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build session request")
		}
		session, err := s.gateway.CreateSession(ctx, req)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "retry checkout session failed", err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
		}

		previous := ""
		if order.ExternalPaymentReference != nil {
			previous = *order.ExternalPaymentReference
		}
		if err := repo.Update(ctx, order.ID, map[string]any{"external_payment_reference": session.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment reference")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderRetried,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: string(principal.Role)},
			Data: payloads.OrderRetriedEvent{
				OrderID:           order.ID,
				BuyerID:           order.BuyerID,
				PreviousSessionID: previous,
				SessionID:         session.ID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order retried")
		}
		result = RetryResult{OrderID: order.ID, CheckoutURL: session.URL}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) List(ctx context.Context, principal auth.Principal, params pagination.Params) (*pagination.Page[OrderView], error) {
	if err := auth.Require(principal, auth.CapManageOwnOrders); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByBuyer(ctx, principal.UserID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return pageOf(rows, params.Limit), nil
}

func (s *service) Detail(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderView, error) {
	if err := auth.Require(principal, auth.CapManageOwnOrders); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	if !ownsOrder(principal, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	view := ToView(*order)
	return &view, nil
}

// SellerOrders pages paid orders that contain the seller's products. Items of other sellers
// are left out.
func (s *service) SellerOrders(ctx context.Context, principal auth.Principal, params pagination.Params) (*pagination.Page[OrderView], error) {
	if err := auth.Require(principal, auth.CapViewSales); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListPaidBySeller(ctx, principal.UserID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller orders")
	}
	return pageOf(rows, params.Limit), nil
}

// SalesReport sums units and earnings per product over the seller's paid orders, best
// sellers first.
func (s *service) SalesReport(ctx context.Context, principal auth.Principal) ([]ProductSales, error) {
	if err := auth.Require(principal, auth.CapViewSales); err != nil {
		return nil, err
	}
	items, err := s.repo.ListPaidItemsBySeller(ctx, principal.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}

	byProduct := map[uuid.UUID]*ProductSales{}
	order := []uuid.UUID{}
	for _, item := range items {
		row, ok := byProduct[item.ProductID]
		if !ok {
			row = &ProductSales{ProductID: item.ProductID, Title: item.Title, TotalEarned: decimal.Zero}
			byProduct[item.ProductID] = row
			order = append(order, item.ProductID)
		}
		row.TotalUnitsSold += item.Quantity
		row.TotalEarned = row.TotalEarned.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	report := make([]ProductSales, 0, len(order))
	for _, id := range order {
		report = append(report, *byProduct[id])
	}
	sort.SliceStable(report, func(i, j int) bool {
		return report[i].TotalUnitsSold > report[j].TotalUnitsSold
	})
	return report, nil
}

func pageOf(rows []models.Order, limit int) *pagination.Page[OrderView] {
	page := pagination.BuildPage(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &pagination.Page[OrderView]{Items: toViews(page.Items), NextCursor: page.NextCursor}
}

func ownsOrder(principal auth.Principal, order *models.Order) bool {
	return principal.Role == enums.RoleAdmin || order.BuyerID == principal.UserID
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
