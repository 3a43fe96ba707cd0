package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/gatewaysync/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "gatewaysync"}
}

func TestMintAndParseAdminToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAdminToken(cfg, now, "ops@example.com", 30*time.Minute)
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}

	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("parse admin token: %v", err)
	}
	if claims.Subject != "ops@example.com" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestParseAdminTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now().Add(-2*time.Hour), "ops", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAdminToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAdminTokenRejectsWrongSecretAndIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now(), "ops", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAdminToken(config.JWTConfig{Secret: "other", Issuer: cfg.Issuer}, token); err == nil {
		t.Fatal("expected signature failure")
	}
	if _, err := ParseAdminToken(config.JWTConfig{Secret: cfg.Secret, Issuer: "someone-else"}, token); err == nil {
		t.Fatal("expected issuer failure")
	}
}

func TestParseAdminTokenRejectsNonAdminRole(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()
	claims := AdminClaims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = ParseAdminToken(cfg, signed)
	if err == nil || !strings.Contains(err.Error(), "not allowed") {
		t.Fatalf("expected role rejection, got %v", err)
	}
}

func TestMintAdminTokenValidation(t *testing.T) {
	now := time.Now()
	if _, err := MintAdminToken(config.JWTConfig{Issuer: "x"}, now, "ops", time.Hour); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := MintAdminToken(testJWTConfig(), now, " ", time.Hour); err == nil {
		t.Fatal("expected missing subject error")
	}
	if _, err := MintAdminToken(testJWTConfig(), now, "ops", 0); err == nil {
		t.Fatal("expected ttl error")
	}
}
