package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/soundmarket-backend/internal/orders"
	"github.com/angelmondragon/soundmarket-backend/pkg/db"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox"
)

func backdate(t *testing.T, conn *gorm.DB, orderID any, at time.Time) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", orderID).Update("created_at", at.UTC()).Error)
}

func TestOrderExpiryJobFailsStalePendingOrders(t *testing.T) {
	conn := dbtest.Open(t)
	seller := dbtest.SeedUser(t, conn, enums.RoleSeller, "acct_1")
	buyer := dbtest.SeedUser(t, conn, enums.RoleBuyer, "")
	product := dbtest.SeedProduct(t, conn, seller.ID, "Drum Kit", "20.00")

	now := time.Now().UTC()
	stale := dbtest.SeedOrder(t, conn, buyer.ID, enums.OrderStatusPending, "cs_stale", product)
	backdate(t, conn, stale.ID, now.Add(-48*time.Hour))
	fresh := dbtest.SeedOrder(t, conn, buyer.ID, enums.OrderStatusPending, "cs_fresh", product)
	paid := dbtest.SeedOrder(t, conn, buyer.ID, enums.OrderStatusPaid, "cs_paid", product)
	backdate(t, conn, paid.ID, now.Add(-48*time.Hour))

	repo := orders.NewRepository(conn)
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:        db.NewFromGorm(conn),
		Orders:    repo,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		TTL:       24 * time.Hour,
		BatchSize: 1,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	ctx := context.Background()
	got, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusFailed, got.Status)

	got, err = repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, got.Status)

	got, err = repo.FindByID(ctx, paid.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, got.Status)

	require.EqualValues(t, 1, dbtest.CountOutbox(t, conn, enums.EventOrderExpired))
}

func TestOrderExpiryJobValidatesParams(t *testing.T) {
	_, err := NewOrderExpiryJob(OrderExpiryJobParams{})
	require.Error(t, err)
}
