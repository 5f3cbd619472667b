package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/angelmondragon/soundmarket-backend/internal/cart"
	"github.com/angelmondragon/soundmarket-backend/internal/orders"
	"github.com/angelmondragon/soundmarket-backend/internal/payouts"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
	"github.com/angelmondragon/soundmarket-backend/pkg/metrics"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Orders            orders.Repository
	Cart              cart.Repository
	Payouts           payouts.Repository
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service settles orders from provider payment confirmations.
type Service struct {
	orders   orders.Repository
	cart     cart.Repository
	payouts  payouts.Repository
	txRunner txRunner
	outbox   outbox.Emitter
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repo required")
	}
	if params.Payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &Service{
		orders:   params.Orders,
		cart:     params.Cart,
		payouts:  params.Payouts,
		txRunner: params.TransactionRunner,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// HandleEvent applies a verified provider event. Event types other than a completed
// checkout session are acknowledged without side effects.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	eventType := string(event.Type)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			s.metrics.IncEvent(eventType, metrics.OutcomeFailed)
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		if session.ID == "" {
			s.metrics.IncEvent(eventType, metrics.OutcomeFailed)
			return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
		}
		// Delayed payment methods complete the session before the money moves; the async
		// success event settles those.
		if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			s.metrics.IncEvent(eventType, metrics.OutcomeIgnored)
			return nil
		}
		outcome, err := s.confirm(ctx, event.ID, session.ID)
		if err != nil {
			s.metrics.IncEvent(eventType, metrics.OutcomeFailed)
			return err
		}
		s.metrics.IncEvent(eventType, outcome)
		return nil
	default:
		s.metrics.IncEvent(eventType, metrics.OutcomeIgnored)
		return nil
	}
}

func (s *Service) confirm(ctx context.Context, eventID, sessionID string) (string, error) {
	outcome := metrics.OutcomeProcessed
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).LockByReference(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order by session")
		}

		switch order.Status {
		case enums.OrderStatusPaid:
			outcome = metrics.OutcomeDuplicate
			return nil
		case enums.OrderStatusCancelled, enums.OrderStatusFailed:
			outcome = metrics.OutcomeIgnored
			return s.flagOrphan(ctx, tx, order, eventID, sessionID)
		}

		return s.settle(ctx, tx, order, eventID, sessionID)
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, order *models.Order, eventID, sessionID string) error {
	now := s.now()
	if err := s.orders.WithTx(tx).Update(ctx, order.ID, map[string]any{
		"status":  enums.OrderStatusPaid,
		"paid_at": now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
	}

	if _, err := s.cart.WithTx(tx).RemoveProducts(ctx, order.BuyerID, order.ProductIDs()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear purchased products from cart")
	}

	gross := map[uuid.UUID]decimal.Decimal{}
	for _, item := range order.Items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		gross[item.SellerID] = gross[item.SellerID].Add(line)
	}
	splits := payouts.Calculate(gross)

	sellerIDs := make([]uuid.UUID, 0, len(splits))
	for sellerID := range splits {
		sellerIDs = append(sellerIDs, sellerID)
	}
	sort.Slice(sellerIDs, func(i, j int) bool { return sellerIDs[i].String() < sellerIDs[j].String() })

	payoutRepo := s.payouts.WithTx(tx)
	for _, sellerID := range sellerIDs {
		exists, err := payoutRepo.Exists(ctx, order.ID, sellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing payout")
		}
		if exists {
			continue
		}
		split := splits[sellerID]
		stripeEventID := eventID
		payout := &models.Payout{
			SellerID:      sellerID,
			OrderID:       order.ID,
			Amount:        split.Net,
			PlatformFee:   split.Fee,
			GrossAmount:   split.Gross,
			Status:        enums.PayoutStatusPaid,
			StripeEventID: &stripeEventID,
			Date:          now,
		}
		if err := payoutRepo.Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payout")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPayoutRecorded,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data: payloads.PayoutRecordedEvent{
				PayoutID:    payout.ID,
				OrderID:     order.ID,
				SellerID:    sellerID,
				GrossAmount: split.Gross,
				PlatformFee: split.Fee,
				Amount:      split.Net,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payout recorded")
		}
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPaidEvent{
			OrderID:       order.ID,
			BuyerID:       order.BuyerID,
			TotalPrice:    order.TotalPrice,
			SessionID:     sessionID,
			StripeEventID: eventID,
			PaidAt:        now,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order paid")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "payouts", len(sellerIDs)), "order settled")
	}
	return nil
}

// flagOrphan records a captured payment for an order that can no longer be fulfilled.
// The order itself is left untouched.
func (s *Service) flagOrphan(ctx context.Context, tx *gorm.DB, order *models.Order, eventID, sessionID string) error {
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
			"order_status":    order.Status,
			"stripe_event_id": eventID,
		})
		s.logg.Warn(logCtx, "payment completed for order that is no longer pending")
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventPaymentOrphaned,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.PaymentOrphanedEvent{
			OrderID:       order.ID,
			BuyerID:       order.BuyerID,
			OrderStatus:   string(order.Status),
			SessionID:     sessionID,
			StripeEventID: eventID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment orphaned")
	}
	return nil
}
