package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/soundmarket-backend/internal/orders"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox/payloads"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	defaultPendingOrderTTL = 24 * time.Hour
	orderExpiryBatchSize   = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderExpiryJobParams configure the abandoned order sweep.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    orders.Repository
	Outbox    outbox.Emitter
	TTL       time.Duration
	BatchSize int
}

// NewOrderExpiryJob builds the job that fails pending orders whose payment session was
// abandoned. Buyers are blocked from checking out while a pending order exists, so stale
// rows must not linger.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = orderExpiryBatchSize
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	orders orders.Repository
	outbox outbox.Emitter
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.ttl)
	total := 0
	var errs error
	for {
		expired, err := j.expireBatch(ctx, cutoff, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		total += expired
		if expired < j.batch || ctx.Err() != nil {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": total,
	})
	j.logg.Info(logCtx, "pending order expiry complete")
	return multierr.Append(errs, ctx.Err())
}

func (j *orderExpiryJob) expireBatch(ctx context.Context, cutoff, now time.Time) (int, error) {
	expired := 0
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		rows, err := repo.LockPendingBefore(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("lock pending orders: %w", err)
		}
		for _, order := range rows {
			if err := repo.Update(ctx, order.ID, map[string]any{"status": enums.OrderStatusFailed}); err != nil {
				return fmt.Errorf("fail order %s: %w", order.ID, err)
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderExpiredEvent{
					OrderID:   order.ID,
					BuyerID:   order.BuyerID,
					CreatedAt: order.CreatedAt,
					ExpiredAt: now,
				},
			}
			if err := j.outbox.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emit order expired: %w", err)
			}
		}
		expired = len(rows)
		return nil
	})
	return expired, err
}
