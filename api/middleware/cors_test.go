package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func preflight(handler http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/admin/webhooks/replay", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := CORS([]string{"https://ops.example.com"}, false)(okHandler())

	if got := preflight(handler, "https://ops.example.com").Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Fatalf("expected configured origin allowed, got %q", got)
	}
	if got := preflight(handler, "https://evil.example.com").Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected unknown origin refused, got %q", got)
	}
}

func TestCORSDefaultsDependOnEnvironment(t *testing.T) {
	dev := CORS(nil, true)(okHandler())
	if got := preflight(dev, "http://localhost:3000").Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected local dashboard allowed in dev, got %q", got)
	}

	prod := CORS(nil, false)(okHandler())
	if got := preflight(prod, "http://localhost:3000").Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS headers outside dev, got %q", got)
	}
}
