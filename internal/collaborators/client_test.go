package collaborators

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
)

func TestPackingSlipGenerate(t *testing.T) {
	orderID := uuid.New()
	invoiceID := uuid.New()

	var captured map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Fatalf("missing content type")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"url":"https://files.example.com/slips/1.pdf"}`))
	}))
	defer srv.Close()

	client, err := NewPackingSlipClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	url, err := client.Generate(context.Background(), orderID, invoiceID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if url != "https://files.example.com/slips/1.pdf" {
		t.Fatalf("unexpected url %q", url)
	}
	if captured["orderId"] != orderID.String() || captured["invoiceId"] != invoiceID.String() {
		t.Fatalf("unexpected body %+v", captured)
	}
}

func TestPackingSlipRejectsEmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"url":""}`))
	}))
	defer srv.Close()

	client, _ := NewPackingSlipClient(srv.URL)
	if _, err := client.Generate(context.Background(), uuid.New(), uuid.Nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestFulfillmentTriggerPostsOrderID(t *testing.T) {
	orderID := uuid.New()
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewFulfillmentClient("http://unused.invalid", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Trigger(context.Background(), orderID); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if body != `{"orderId":"`+orderID.String()+`"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestShippingLabelFailureIsDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "provider down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, _ := NewShippingLabelClient(srv.URL)
	err := client.Sync(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error got %v", err)
	}
	if cause := errors.Unwrap(err); cause == nil || !strings.Contains(cause.Error(), "status 502") {
		t.Fatalf("expected status in error got %v", err)
	}
}

func TestShippingRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rates/rate_42" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"amount":"12.50","currency":"usd"}`))
	}))
	defer srv.Close()

	client, _ := NewShippingRateClient(srv.URL + "/rates/")
	amount, err := client.Rate(context.Background(), "rate_42")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if amount.String() != "12.5" {
		t.Fatalf("unexpected amount %s", amount)
	}

	if _, err := client.Rate(context.Background(), " "); err == nil {
		t.Fatal("expected validation error for empty rate id")
	}
}

func TestShippingRateMissingAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"currency":"usd"}`))
	}))
	defer srv.Close()

	client, _ := NewShippingRateClient(srv.URL)
	if _, err := client.Rate(context.Background(), "rate_1"); err == nil {
		t.Fatal("expected error when amount is missing")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewFulfillmentClient("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
