package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/soundmarket-backend/internal/cart"
	"github.com/angelmondragon/soundmarket-backend/internal/catalog"
	"github.com/angelmondragon/soundmarket-backend/internal/coupons"
	"github.com/angelmondragon/soundmarket-backend/internal/orders"
	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
	"github.com/angelmondragon/soundmarket-backend/pkg/metrics"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/soundmarket-backend/pkg/stripe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a buyer's cart into one pending order per payable seller.
type Service interface {
	Execute(ctx context.Context, principal auth.Principal, input Input) (*Result, error)
}

// Input carries the coupon codes the buyer chose, keyed by product id.
type Input struct {
	Coupons map[uuid.UUID]string
}

// SessionResult is the hosted checkout opened for one seller.
type SessionResult struct {
	SellerID    uuid.UUID `json:"seller_id"`
	OrderID     uuid.UUID `json:"order_id"`
	CheckoutURL string    `json:"checkout_url"`
}

// Result lists the opened sessions and the sellers that were skipped.
type Result struct {
	Sessions        []SessionResult      `json:"sessions"`
	Skipped         []Skipped            `json:"skipped,omitempty"`
	RejectedCoupons map[uuid.UUID]string `json:"rejected_coupons,omitempty"`
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	Orders            orders.Repository
	Cart              cart.Repository
	Catalog           catalog.Store
	Coupons           *coupons.Validator
	Gateway           stripe.SessionGateway
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Settings          orders.SessionSettings
	Metrics           *metrics.CheckoutMetrics
	Logger            *logger.Logger
}

type service struct {
	orders   orders.Repository
	cart     cart.Repository
	catalog  catalog.Store
	coupons  *coupons.Validator
	gateway  stripe.SessionGateway
	tx       txRunner
	outbox   outbox.Emitter
	settings orders.SessionSettings
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates and wires the checkout dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon validator required")
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
		orders:   params.Orders,
		cart:     params.Cart,
		catalog:  params.Catalog,
		coupons:  params.Coupons,
		gateway:  params.Gateway,
		tx:       params.TransactionRunner,
		outbox:   params.Outbox,
		settings: params.Settings,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Execute runs the whole checkout in one transaction. The buyer row lock serializes
// concurrent checkouts of the same buyer, so the pending-order check cannot race.
func (s *service) Execute(ctx context.Context, principal auth.Principal, input Input) (*Result, error) {
	if err := auth.Require(principal, auth.CapCheckout); err != nil {
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithUserID(ctx, principal.UserID.String())
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogTx := s.catalog.WithTx(tx)
		ordersTx := s.orders.WithTx(tx)

		if _, err := catalogTx.LockUser(ctx, principal.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock buyer")
		}

		pending, err := ordersTx.HasPending(ctx, principal.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check pending orders")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeConflict, "a pending order already exists; complete or cancel it before starting a new checkout")
		}

		entries, err := s.cart.WithTx(tx).ListEntries(ctx, principal.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if len(entries) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		split, err := s.split(ctx, tx, entries, input.Coupons)
		if err != nil {
			return err
		}

		res := &Result{Skipped: split.Skipped, Sessions: []SessionResult{}}
		if len(split.RejectedCoupons) > 0 {
			res.RejectedCoupons = split.RejectedCoupons
		}
		for _, skipped := range split.Skipped {
			s.metrics.IncPartition(metrics.OutcomeSkipped)
			s.warn(ctx, "seller skipped at checkout", map[string]any{"seller_id": skipped.SellerID.String(), "reason": skipped.Reason})
		}

		for _, partition := range split.Partitions {
			session, err := s.openPartition(ctx, tx, principal, partition)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
					s.metrics.IncPartition(metrics.OutcomeFailed)
					if s.logg != nil {
						s.logg.Error(s.logg.WithField(ctx, "seller_id", partition.SellerID.String()), "checkout session failed; skipping seller", err)
					}
					res.Skipped = append(res.Skipped, Skipped{SellerID: partition.SellerID, Reason: SkipGatewayError})
					continue
				}
				return err
			}
			s.metrics.IncPartition(metrics.OutcomeCreated)
			res.Sessions = append(res.Sessions, *session)
		}

		if len(res.Sessions) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no eligible seller could be checked out").WithDetails(res.Skipped)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) split(ctx context.Context, tx *gorm.DB, entries []models.CartEntry, codes map[uuid.UUID]string) (*SplitResult, error) {
	catalogTx := s.catalog.WithTx(tx)
	productIDs := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		productIDs = append(productIDs, entry.ProductID)
	}
	products, err := catalogTx.LiveProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	sellerIDs := make([]uuid.UUID, 0, len(products))
	seen := map[uuid.UUID]struct{}{}
	for _, product := range products {
		if _, ok := seen[product.SellerID]; ok {
			continue
		}
		seen[product.SellerID] = struct{}{}
		sellerIDs = append(sellerIDs, product.SellerID)
	}
	sellers, err := catalogTx.Sellers(ctx, sellerIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sellers")
	}

	return NewSplitter(s.coupons.WithTx(tx)).Split(ctx, SplitInput{
		Entries:  entries,
		Products: products,
		Sellers:  sellers,
		Coupons:  codes,
		Now:      s.now(),
	})
}

// openPartition calls the gateway for one seller and records the pending order. Gateway
// failures come back as dependency errors so the caller can skip the seller.
func (s *service) openPartition(ctx context.Context, tx *gorm.DB, principal auth.Principal, partition Partition) (*SessionResult, error) {
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       principal.UserID,
		TotalPrice:    partition.Total,
		PaymentMethod: enums.PaymentMethodStripe,
		Status:        enums.OrderStatusPending,
	}
	for _, item := range partition.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.Product.ID,
			SellerID:  partition.SellerID,
			Title:     item.Product.Title,
			Price:     item.Price,
			Quantity:  1,
		})
	}

	req, err := orders.SessionRequestFor(order, partition.Destination, s.settings)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build session request")
	}
	session, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	order.ExternalPaymentReference = &session.ID
	if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: string(principal.Role)},
		Data: payloads.OrderCreatedEvent{
			OrderID:    order.ID,
			BuyerID:    order.BuyerID,
			SellerID:   partition.SellerID,
			TotalPrice: order.TotalPrice,
			SessionID:  session.ID,
			ProductIDs: order.ProductIDs(),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
	}

	return &SessionResult{SellerID: partition.SellerID, OrderID: order.ID, CheckoutURL: session.URL}, nil
}

func (s *service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}
