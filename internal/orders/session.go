package orders

import (
	"fmt"

	"github.com/angelmondragon/soundmarket-backend/pkg/config"
	"github.com/angelmondragon/soundmarket-backend/pkg/db/models"
	"github.com/angelmondragon/soundmarket-backend/pkg/money"
	"github.com/angelmondragon/soundmarket-backend/pkg/stripe"
)

// SessionSettings holds the checkout redirect and currency settings shared by checkout and retry.
type SessionSettings struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// SettingsFromConfig derives the session settings from the checkout config.
func SettingsFromConfig(cfg config.CheckoutConfig) SessionSettings {
	return SessionSettings{
		Currency:   cfg.Currency,
		SuccessURL: cfg.SuccessURL(),
		CancelURL:  cfg.CancelURL(),
	}
}

// SessionRequestFor builds the hosted checkout request for a single-seller order from its
// stored item prices. The application fee is the same 10% the payout calculator records.
func SessionRequestFor(order *models.Order, destination string, settings SessionSettings) (stripe.SessionRequest, error) {
	if order == nil || len(order.Items) == 0 {
		return stripe.SessionRequest{}, fmt.Errorf("order has no items")
	}
	lineItems := make([]stripe.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		cents, err := money.ToMinorUnits(item.Price)
		if err != nil {
			return stripe.SessionRequest{}, fmt.Errorf("item %s: %w", item.ProductID, err)
		}
		lineItems = append(lineItems, stripe.LineItem{
			Name:       item.Title,
			UnitAmount: cents,
			Quantity:   int64(item.Quantity),
		})
	}
	fee, err := money.ToMinorUnits(money.PlatformFee(order.TotalPrice))
	if err != nil {
		return stripe.SessionRequest{}, fmt.Errorf("platform fee: %w", err)
	}
	return stripe.SessionRequest{
		Currency:             settings.Currency,
		LineItems:            lineItems,
		SuccessURL:           settings.SuccessURL,
		CancelURL:            settings.CancelURL,
		DestinationAccount:   destination,
		ApplicationFeeAmount: fee,
		ClientReferenceID:    order.ID.String(),
		Metadata: map[string]string{
			"order_id":  order.ID.String(),
			"buyer_id":  order.BuyerID.String(),
			"seller_id": order.Items[0].SellerID.String(),
		},
	}, nil
}
