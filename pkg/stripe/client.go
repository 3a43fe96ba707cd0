// Package stripe holds the gateway credentials: the webhook signing secret
// and, optionally, a secret key for enrichment fetches.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/charge"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

// ErrAPIKeyMissing is returned by enrichment calls when no secret key is
// configured.
var ErrAPIKeyMissing = errors.New("stripe api key is not configured")

// keyPrefixes lists the secret and restricted key prefixes each environment
// accepts.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

type Client struct {
	environment   string
	signingSecret string
	// nil without an api key
	api *resources
}

// resources are per-key clients, so no package-level stripe.Key is set.
type resources struct {
	paymentIntents *paymentintent.Client
	charges        *charge.Client
	sessions       *session.Client
}

// NewClient validates the key against the environment. A missing signing
// secret is allowed; the webhook handler reports it per request.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	return newClient(ctx, cfg, stripe.GetBackend(stripe.APIBackend), logg)
}

func newClient(ctx context.Context, cfg config.StripeConfig, backend stripe.Backend, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	if _, known := keyPrefixes[env]; !known {
		return nil, fmt.Errorf("stripe environment must be %q or %q, got %q", testEnv, liveEnv, env)
	}

	c := &Client{environment: env, signingSecret: firstNonEmpty(cfg.WebhookSecret, cfg.Secret)}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		if !keyMatchesEnv(env, key) {
			return nil, fmt.Errorf("stripe environment %q requires one of %v keys", env, keyPrefixes[env])
		}
		c.api = &resources{
			paymentIntents: &paymentintent.Client{B: backend, Key: key},
			charges:        &charge.Client{B: backend, Key: key},
			sessions:       &session.Client{B: backend, Key: key},
		}
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_env": env,
			"enrichment": c.api != nil,
		}), "stripe client initialized")
	}
	return c, nil
}

func keyMatchesEnv(env, key string) bool {
	for _, prefix := range keyPrefixes[env] {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CanEnrich reports whether API fetches are possible.
func (c *Client) CanEnrich() bool {
	return c != nil && c.api != nil
}
