package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gatewaysync/api/controllers"
	webhookcontrollers "github.com/angelmondragon/gatewaysync/api/controllers/webhooks"
	"github.com/angelmondragon/gatewaysync/api/middleware"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/webhooklog"
	stripewebhook "github.com/angelmondragon/gatewaysync/internal/webhooks/stripe"
	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/db"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/redis"
	"github.com/angelmondragon/gatewaysync/pkg/stripe"
)

// WebhookRouter is the event router as the HTTP layer sees it.
type WebhookRouter interface {
	Process(ctx context.Context, ev gateway.Event, opts stripewebhook.ProcessOptions) stripewebhook.Result
	Replay(ctx context.Context, eventID string) (stripewebhook.Result, error)
}

// NewRouter wires the public webhook endpoint, the admin surface, health
// probes and the metrics scrape endpoint. redisClient, bigqueryClient and
// webhookGuard may be nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	bigqueryClient controllers.Pinger,
	stripeClient *stripe.Client,
	webhookRouter WebhookRouter,
	webhookGuard *stripewebhook.IdempotencyGuard,
	webhookLog webhooklog.Repository,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	readiness := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}
	if bigqueryClient != nil {
		readiness["bigquery"] = bigqueryClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.HandleFunc("/stripe", stripeWebhookHandler(webhookRouter, stripeClient, webhookGuard, logg))
	})

	replayPolicy := middleware.NewRateLimitPolicy("replay", cfg.Replay.ManualWindow, cfg.Replay.ManualLimit)

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins, cfg.App.IsDev()))
		r.Use(middleware.AdminAuth(cfg.JWT, logg))

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/events", controllers.AdminWebhookEvents(webhookLog, logg))
			r.With(rateLimit(replayPolicy, redisClient, logg)).Post("/replay", controllers.AdminReplayWebhook(webhookRouter, logg))
		})
	})

	return r
}

func stripeWebhookHandler(router WebhookRouter, client *stripe.Client, guard *stripewebhook.IdempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	if guard == nil {
		return webhookcontrollers.StripeWebhook(router, client, nil, logg)
	}
	return webhookcontrollers.StripeWebhook(router, client, guard, logg)
}

func rateLimit(policy middleware.RateLimitPolicy, store *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	if store == nil {
		return middleware.RateLimit(policy, nil, logg)
	}
	return middleware.RateLimit(policy, store, logg)
}
