package payouts

import (
	"github.com/angelmondragon/soundmarket-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Split is one seller's share of a settled order.
type Split struct {
	Gross decimal.Decimal
	Fee   decimal.Decimal
	Net   decimal.Decimal
}

// Calculate applies the platform fee to each seller's gross. Fee and net always add back
// up to the gross.
func Calculate(grossBySeller map[uuid.UUID]decimal.Decimal) map[uuid.UUID]Split {
	splits := make(map[uuid.UUID]Split, len(grossBySeller))
	for sellerID, gross := range grossBySeller {
		gross = money.Round2(gross)
		fee, net := money.Split(gross)
		splits[sellerID] = Split{Gross: gross, Fee: fee, Net: net}
	}
	return splits
}
