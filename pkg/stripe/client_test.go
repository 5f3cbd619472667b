package stripe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/soundmarket-backend/pkg/config"
)

func TestNewClientAcceptsMatchingKeys(t *testing.T) {
	cases := []struct {
		name       string
		cfg        config.StripeConfig
		mode       Mode
		restricted bool
	}{
		{"test secret key", config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_1"}, ModeTest, false},
		{"live restricted key", config.StripeConfig{APIKey: " rk_live_abc ", Secret: "whsec_1", Env: "LIVE"}, ModeLive, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			if client.mode != tc.mode || client.restricted != tc.restricted {
				t.Fatalf("got mode=%s restricted=%v", client.mode, client.restricted)
			}
			if client.Environment() != string(tc.mode) {
				t.Fatalf("unexpected environment %q", client.Environment())
			}
			if client.SigningSecret() != "whsec_1" || client.API() == nil {
				t.Fatalf("client not fully populated")
			}
		})
	}
}

func TestNewClientRejectsBadCredentials(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.StripeConfig
		want error
		msg  string
	}{
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_a", Secret: "whsec_1", Env: "staging"}, want: errUnsupportedStripe},
		{name: "missing key", cfg: config.StripeConfig{Secret: "whsec_1"}, want: errAPIKeyRequired},
		{name: "publishable key", cfg: config.StripeConfig{APIKey: "pk_test_a", Secret: "whsec_1"}, want: errUnknownKeyFormat},
		{name: "key without mode", cfg: config.StripeConfig{APIKey: "sk_a", Secret: "whsec_1"}, want: errUnknownKeyFormat},
		{name: "live key in test", cfg: config.StripeConfig{APIKey: "sk_live_a", Secret: "whsec_1"}, msg: "live-mode api key"},
		{name: "missing secret", cfg: config.StripeConfig{APIKey: "sk_test_a"}, want: errSecretRequired},
		{name: "secret without prefix", cfg: config.StripeConfig{APIKey: "sk_test_a", Secret: "abc"}, want: errSecretMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tc.cfg, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.msg != "" && !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected %q in %v", tc.msg, err)
			}
		})
	}
}

func TestNilClientAccessors(t *testing.T) {
	var c *Client
	if c.API() != nil || c.Environment() != "" || c.SigningSecret() != "" {
		t.Fatal("nil client should expose zero values")
	}
}
