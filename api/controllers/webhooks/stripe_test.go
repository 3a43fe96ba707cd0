package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/gatewaysync/internal/gateway"
	stripewebhook "github.com/angelmondragon/gatewaysync/internal/webhooks/stripe"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

const testSecret = "whsec_test"

func TestStripeWebhookProcessesAndDedupes(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	router := &fakeProcessor{status: enums.WebhookEventStatusProcessed}
	guard := newGuard(t)
	handler := StripeWebhook(router, fakeSecrets(testSecret), guard, nil)

	rec := deliver(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ack := decodeAck(t, rec)
	require.True(t, ack.Received)
	require.False(t, ack.Duplicate)
	require.Equal(t, "processed", ack.Status)
	require.Equal(t, 1, router.callCount())
	require.Equal(t, enums.EventCheckoutSessionCompleted, router.last.Type)

	rec = deliver(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	ack = decodeAck(t, rec)
	require.True(t, ack.Duplicate)
	require.Equal(t, 1, router.callCount(), "duplicate must not reach the router")
}

func TestStripeWebhookErrorReleasesGuardAndStillAcks(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	router := &fakeProcessor{status: enums.WebhookEventStatusError}
	guard := newGuard(t)
	handler := StripeWebhook(router, fakeSecrets(testSecret), guard, nil)

	rec := deliver(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "error", decodeAck(t, rec).Status)

	// redelivery runs again because the marker was released
	rec = deliver(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decodeAck(t, rec).Duplicate)
	require.Equal(t, 2, router.callCount())
}

func TestStripeWebhookGuardFailureFallsThrough(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	router := &fakeProcessor{status: enums.WebhookEventStatusProcessed}
	handler := StripeWebhook(router, fakeSecrets(testSecret), failingGuard{}, nil)

	rec := deliver(handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, router.callCount())
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, testSecret)
	router := &fakeProcessor{}
	handler := StripeWebhook(router, fakeSecrets(testSecret), nil, nil)

	rec := deliver(handler, payload, "t=1,v1=invalid")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "SIGNATURE_INVALID")
	require.Zero(t, router.callCount())
}

func TestStripeWebhookRejectsWrongSecret(t *testing.T) {
	payload, header := buildSignedEvent(t, "whsec_other")
	router := &fakeProcessor{}
	handler := StripeWebhook(router, fakeSecrets(testSecret), nil, nil)

	rec := deliver(handler, payload, header)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, router.callCount())
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, testSecret)
	handler := StripeWebhook(&fakeProcessor{}, fakeSecrets(testSecret), nil, nil)

	rec := deliver(handler, payload, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhookMissingSecret(t *testing.T) {
	payload, header := buildSignedEvent(t, testSecret)
	handler := StripeWebhook(&fakeProcessor{}, fakeSecrets(""), nil, nil)

	rec := deliver(handler, payload, header)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStripeWebhookMethods(t *testing.T) {
	handler := StripeWebhook(&fakeProcessor{}, fakeSecrets(testSecret), nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/webhooks/stripe", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, rec.Body.Len())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/stripe", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func deliver(handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set(signatureHeader, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) Ack {
	t.Helper()
	var ack Ack
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	return ack
}

func buildSignedEvent(t *testing.T, secret string) ([]byte, string) {
	t.Helper()
	session := map[string]any{
		"id":             "cs_test_" + uuid.NewString(),
		"object":         "checkout.session",
		"payment_status": "paid",
		"currency":       "usd",
		"amount_total":   5900,
	}
	rawSession, err := json.Marshal(session)
	require.NoError(t, err)

	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Created:    time.Now().Unix(),
		Data:       &stripe.EventData{Raw: rawSession},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload, buildStripeSignatureHeader(payload, secret, time.Now().Unix())
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeProcessor struct {
	mu     sync.Mutex
	calls  int
	last   gateway.Event
	status enums.WebhookEventStatus
}

func (f *fakeProcessor) Process(ctx context.Context, ev gateway.Event, opts stripewebhook.ProcessOptions) stripewebhook.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = ev
	return stripewebhook.Result{EventID: ev.ID, EventType: ev.Type, Status: f.status, Attempt: f.calls}
}

func (f *fakeProcessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSecrets string

func (s fakeSecrets) SigningSecret() string { return string(s) }

type failingGuard struct{}

func (failingGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingGuard) Release(ctx context.Context, eventID string) error { return nil }

func newGuard(t *testing.T) *stripewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "stripe-webhook")
	require.NoError(t, err)
	return guard
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("gs:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
