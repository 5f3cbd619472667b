package payouts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/soundmarket-backend/pkg/auth"
	"github.com/angelmondragon/soundmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/soundmarket-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View is a payout as shown to its seller.
type View struct {
	ID          uuid.UUID          `json:"id"`
	OrderID     uuid.UUID          `json:"order_id"`
	Amount      decimal.Decimal    `json:"amount"`
	PlatformFee decimal.Decimal    `json:"platform_fee"`
	GrossAmount decimal.Decimal    `json:"gross_amount"`
	Status      enums.PayoutStatus `json:"status"`
	Date        time.Time          `json:"date"`
}

// Service lists seller payouts.
type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	return &Service{repo: repo}, nil
}

// List returns the caller's payouts. An empty status means every status.
func (s *Service) List(ctx context.Context, principal auth.Principal, status string) ([]View, error) {
	if err := auth.Require(principal, auth.CapViewPayouts); err != nil {
		return nil, err
	}
	var filter *enums.PayoutStatus
	if status = strings.TrimSpace(status); status != "" {
		parsed, err := enums.ParsePayoutStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter = &parsed
	}
	rows, err := s.repo.ListBySeller(ctx, principal.UserID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payouts")
	}
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, View{
			ID:          row.ID,
			OrderID:     row.OrderID,
			Amount:      row.Amount,
			PlatformFee: row.PlatformFee,
			GrossAmount: row.GrossAmount,
			Status:      row.Status,
			Date:        row.Date,
		})
	}
	return views, nil
}
