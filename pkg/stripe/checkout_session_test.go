package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v84"
)

func validRequest() SessionRequest {
	return SessionRequest{
		Currency: "usd",
		LineItems: []LineItem{
			{Name: "Lo-fi Drum Kit", UnitAmount: 1800, Quantity: 1},
			{Name: "Vocal Chops", UnitAmount: 500},
		},
		SuccessURL:           "https://app.test/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:            "https://app.test/checkout/cancel",
		DestinationAccount:   "acct_seller",
		ApplicationFeeAmount: 230,
		Metadata:             map[string]string{"buyer_id": "b-1"},
	}
}

func TestBuildSessionParams(t *testing.T) {
	params, err := BuildSessionParams(validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *params.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("unexpected mode %s", *params.Mode)
	}
	if len(params.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(params.LineItems))
	}
	if *params.LineItems[1].Quantity != 1 {
		t.Fatalf("quantity should default to 1")
	}
	if *params.LineItems[0].PriceData.UnitAmount != 1800 {
		t.Fatalf("unexpected unit amount %d", *params.LineItems[0].PriceData.UnitAmount)
	}
	if *params.PaymentIntentData.ApplicationFeeAmount != 230 {
		t.Fatalf("unexpected fee %d", *params.PaymentIntentData.ApplicationFeeAmount)
	}
	if *params.PaymentIntentData.TransferData.Destination != "acct_seller" {
		t.Fatalf("unexpected destination %s", *params.PaymentIntentData.TransferData.Destination)
	}
	if params.Metadata["buyer_id"] != "b-1" {
		t.Fatalf("metadata not forwarded: %v", params.Metadata)
	}
}

func TestBuildSessionParamsValidation(t *testing.T) {
	cases := map[string]func(*SessionRequest){
		"no items":       func(r *SessionRequest) { r.LineItems = nil },
		"no destination": func(r *SessionRequest) { r.DestinationAccount = " " },
		"no urls":        func(r *SessionRequest) { r.CancelURL = "" },
		"fee over total": func(r *SessionRequest) { r.ApplicationFeeAmount = 10_000 },
		"negative item":  func(r *SessionRequest) { r.LineItems[0].UnitAmount = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			if _, err := BuildSessionParams(req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSessionUsesCreator(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	gateway := &CheckoutSessions{create: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
	}}

	ctx := context.Background()
	sess, err := gateway.CreateSession(ctx, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != "cs_test_1" || sess.URL == "" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if captured == nil || captured.Context != ctx {
		t.Fatal("expected request context to be attached")
	}
}

func TestCreateSessionPropagatesProviderError(t *testing.T) {
	boom := errors.New("card network down")
	gateway := &CheckoutSessions{create: func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, boom
	}}
	if _, err := gateway.CreateSession(context.Background(), validRequest()); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNormalizeEnvAndKeys(t *testing.T) {
	if env, err := normalizeEnv(""); err != nil || env != testEnv {
		t.Fatalf("expected default test env, got %q %v", env, err)
	}
	if _, err := normalizeEnv("staging"); err == nil {
		t.Fatal("expected invalid env")
	}
	if err := validateAPIKey(testEnv, "sk_live_123"); err == nil {
		t.Fatal("live key in test env should fail")
	}
	if err := validateAPIKey(liveEnv, "rk_live_123"); err != nil {
		t.Fatalf("restricted live key should pass: %v", err)
	}
}
