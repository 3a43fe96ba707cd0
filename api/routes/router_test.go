package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/webhooklog"
	stripewebhook "github.com/angelmondragon/gatewaysync/internal/webhooks/stripe"
	pkgAuth "github.com/angelmondragon/gatewaysync/pkg/auth"
	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/metrics"
	"github.com/angelmondragon/gatewaysync/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubWebhookRouter struct {
	replayed []string
}

func (s *stubWebhookRouter) Process(ctx context.Context, ev gateway.Event, opts stripewebhook.ProcessOptions) stripewebhook.Result {
	return stripewebhook.Result{EventID: ev.ID, EventType: ev.Type, Status: enums.WebhookEventStatusProcessed}
}

func (s *stubWebhookRouter) Replay(ctx context.Context, eventID string) (stripewebhook.Result, error) {
	s.replayed = append(s.replayed, eventID)
	return stripewebhook.Result{EventID: eventID, Status: enums.WebhookEventStatusProcessed, Attempt: 2}, nil
}

type stubWebhookLog struct {
	webhooklog.Repository
}

func (stubWebhookLog) List(ctx context.Context, filter webhooklog.ListFilter, params pagination.Params) (*webhooklog.Page, error) {
	return &webhooklog.Page{Events: []webhooklog.EventSummary{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Env: "test"},
		JWT:    config.JWTConfig{Secret: "secret", Issuer: "gatewaysync"},
		Replay: config.ReplayConfig{ManualLimit: 5, ManualWindow: time.Minute},
	}
}

func newTestRouter(cfg *config.Config, webhookRouter *stubWebhookRouter) http.Handler {
	reg := prometheus.NewRegistry()
	metrics.NewWebhookMetrics(reg).ObserveWebhookEvent("charge.refunded", "processed", time.Millisecond)
	return NewRouter(cfg, nil, stubPinger{}, nil, nil, nil, webhookRouter, nil, stubWebhookLog{}, reg)
}

func adminToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAdminToken(cfg.JWT, time.Now(), "ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(testConfig(), &stubWebhookRouter{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(testConfig(), &stubWebhookRouter{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "webhook_events_total") {
		t.Fatalf("expected webhook metrics in scrape output")
	}
}

func TestWebhookRouteWithoutSecretFailsClosed(t *testing.T) {
	router := newTestRouter(testConfig(), &stubWebhookRouter{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without signing secret got %d", resp.Code)
	}
}

func TestWebhookRouteMethods(t *testing.T) {
	router := newTestRouter(testConfig(), &stubWebhookRouter{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/api/v1/webhooks/stripe", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for OPTIONS got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/api/v1/webhooks/stripe", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for PUT got %d", resp.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	webhookRouter := &stubWebhookRouter{}
	router := newTestRouter(testConfig(), webhookRouter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/webhooks/replay", strings.NewReader(`{"event_id":"evt_1"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
	if len(webhookRouter.replayed) != 0 {
		t.Fatal("replay must not run without a token")
	}
}

func TestAdminReplayWithToken(t *testing.T) {
	cfg := testConfig()
	webhookRouter := &stubWebhookRouter{}
	router := newTestRouter(cfg, webhookRouter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/webhooks/replay", strings.NewReader(`{"event_id":"evt_1"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(webhookRouter.replayed) != 1 || webhookRouter.replayed[0] != "evt_1" {
		t.Fatalf("expected replay of evt_1 got %v", webhookRouter.replayed)
	}

	list := httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhooks/events?status=error", nil)
	list.Header.Set("Authorization", "Bearer "+adminToken(t, cfg))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, list)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for event list got %d", resp.Code)
	}
}
