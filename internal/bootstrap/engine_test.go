package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/db/dbtest"
)

func TestNewEngineWithMinimalConfig(t *testing.T) {
	cfg := &config.Config{
		Stripe: config.StripeConfig{Env: "test", WebhookSecret: "whsec_test"},
	}
	engine, err := NewEngine(context.Background(), Params{Config: cfg, DB: dbtest.Open(t)})
	require.NoError(t, err)
	require.NotNil(t, engine.Router)
	assert.Nil(t, engine.BigQuery)
	assert.Equal(t, "whsec_test", engine.Stripe.SigningSecret())
	assert.NoError(t, engine.Close(context.Background()))
}

func TestNewEngineRequiresDB(t *testing.T) {
	_, err := NewEngine(context.Background(), Params{Config: &config.Config{}})
	require.Error(t, err)
}

func TestNewDispatcherSkipsUnconfigured(t *testing.T) {
	cfg := &config.Config{
		Collaborators: config.CollaboratorsConfig{
			FulfillmentURL: "https://fulfillment.example.com/trigger",
			HTTPTimeout:    time.Second,
		},
	}
	d, err := newDispatcher(cfg, nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, d)

	cfg.Sendgrid = config.SendgridConfig{APIKey: "SG.key", DefaultFrom: "not-an-email"}
	_, err = newDispatcher(cfg, nil, nil, nil)
	require.Error(t, err)
}

func TestCloseNilEngine(t *testing.T) {
	var e *Engine
	assert.NoError(t, e.Close(context.Background()))
}
