package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// LineItem is one product sold through a hosted checkout session.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// SessionRequest is everything the marketplace sends when opening a hosted checkout for
// one seller partition.
type SessionRequest struct {
	Currency             string
	LineItems            []LineItem
	SuccessURL           string
	CancelURL            string
	DestinationAccount   string
	ApplicationFeeAmount int64
	ClientReferenceID    string
	Metadata             map[string]string
}

// Session is the subset of the provider response the marketplace persists.
type Session struct {
	ID  string
	URL string
}

// SessionGateway opens hosted checkout sessions.
type SessionGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// CheckoutSessions creates Stripe Checkout sessions that route funds to a connected account.
type CheckoutSessions struct {
	create sessionCreator
}

// NewCheckoutSessions wraps the configured Stripe client.
func NewCheckoutSessions(client *Client) (*CheckoutSessions, error) {
	if client == nil || client.API() == nil {
		return nil, errors.New("stripe client required")
	}
	return &CheckoutSessions{create: session.New}, nil
}

// CreateSession opens a one-time payment session for req.
func (c *CheckoutSessions) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params, err := BuildSessionParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	created, err := c.create(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if created == nil || created.ID == "" {
		return nil, errors.New("checkout session missing id")
	}
	return &Session{ID: created.ID, URL: created.URL}, nil
}

// BuildSessionParams validates req and maps it onto Stripe's payment-mode session params.
func BuildSessionParams(req SessionRequest) (*stripe.CheckoutSessionParams, error) {
	if len(req.LineItems) == 0 {
		return nil, errors.New("at least one line item is required")
	}
	if strings.TrimSpace(req.DestinationAccount) == "" {
		return nil, errors.New("destination account is required")
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		return nil, errors.New("success and cancel urls are required")
	}
	if req.ApplicationFeeAmount < 0 {
		return nil, errors.New("application fee cannot be negative")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	var total int64
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		if item.UnitAmount < 0 {
			return nil, fmt.Errorf("line item %q has a negative amount", item.Name)
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += item.UnitAmount * qty
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(qty),
		})
	}
	if req.ApplicationFeeAmount > total {
		return nil, fmt.Errorf("application fee %d exceeds session total %d", req.ApplicationFeeAmount, total)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(req.ApplicationFeeAmount),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.DestinationAccount),
			},
		},
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	return params, nil
}
