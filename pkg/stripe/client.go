package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/soundmarket-backend/pkg/config"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
)

// Mode is the Stripe account mode the marketplace settles in.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

const webhookSecretPrefix = "whsec_"

var (
	errAPIKeyRequired    = errors.New("stripe api key is required")
	errSecretRequired    = errors.New("stripe webhook secret is required")
	errSecretMalformed   = errors.New("stripe webhook secret must start with " + webhookSecretPrefix)
	errUnknownKeyFormat  = errors.New("stripe api key is neither a secret (sk_) nor a restricted (rk_) key")
	errUnsupportedStripe = fmt.Errorf("stripe environment must be %q or %q", ModeTest, ModeLive)
)

// Client holds the marketplace's Stripe credentials. Sessions and webhooks read from it;
// nothing else talks to Stripe.
type Client struct {
	api           *stripe.Client
	mode          Mode
	restricted    bool
	signingSecret string
}

// credentials is the parsed form of StripeConfig.
type credentials struct {
	apiKey     string
	secret     string
	mode       Mode
	restricted bool
}

func parseCredentials(cfg config.StripeConfig) (credentials, error) {
	mode := Mode(cfg.Environment())
	if mode != ModeTest && mode != ModeLive {
		return credentials{}, errUnsupportedStripe
	}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return credentials{}, errAPIKeyRequired
	}
	keyMode, restricted, err := classifyKey(key)
	if err != nil {
		return credentials{}, err
	}
	if keyMode != mode {
		return credentials{}, fmt.Errorf("stripe environment %q was given a %s-mode api key", mode, keyMode)
	}

	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case secret == "":
		return credentials{}, errSecretRequired
	case !strings.HasPrefix(secret, webhookSecretPrefix):
		return credentials{}, errSecretMalformed
	}

	return credentials{apiKey: key, secret: secret, mode: mode, restricted: restricted}, nil
}

// classifyKey reads the mode out of a key such as sk_live_... or rk_test_....
func classifyKey(key string) (Mode, bool, error) {
	kind, rest, ok := strings.Cut(key, "_")
	if !ok || (kind != "sk" && kind != "rk") {
		return "", false, errUnknownKeyFormat
	}
	mode, _, _ := strings.Cut(rest, "_")
	switch Mode(mode) {
	case ModeTest, ModeLive:
		return Mode(mode), kind == "rk", nil
	default:
		return "", false, errUnknownKeyFormat
	}
}

// NewClient validates the configured credentials and builds the API client.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	creds, err := parseCredentials(cfg)
	if err != nil {
		return nil, err
	}

	stripe.Key = creds.apiKey
	c := &Client{
		api:           stripe.NewClient(creds.apiKey),
		mode:          creds.mode,
		restricted:    creds.restricted,
		signingSecret: creds.secret,
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_mode":       string(c.mode),
			"stripe_restricted": c.restricted,
		}), "stripe client initialized")
	}
	return c, nil
}

func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the mode as a string for health and log output.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return string(c.mode)
}

// SigningSecret returns the webhook endpoint secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
