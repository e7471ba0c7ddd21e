package testutil

import (
	"testing"
	"time"

	"github.com/fvorders/fvorders-api/config"
	"github.com/fvorders/fvorders-api/services"
)

// AdminToken issues a valid admin token for cfg
func AdminToken(t *testing.T, cfg *config.Config) string {
	t.Helper()

	token, _, err := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience).Issue(cfg.AdminEmail)
	if err != nil {
		t.Fatalf("failed to issue admin token: %v", err)
	}
	return token
}

// ExpiredAdminToken issues a token for cfg that expired an hour ago
func ExpiredAdminToken(t *testing.T, cfg *config.Config) string {
	t.Helper()

	past := func() time.Time { return time.Now().Add(-services.AdminTokenTTL - time.Hour) }
	token, _, err := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience).
		WithClock(past).
		Issue(cfg.AdminEmail)
	if err != nil {
		t.Fatalf("failed to issue expired token: %v", err)
	}
	return token
}

// ForeignAdminToken issues a token signed with a secret the server does not know
func ForeignAdminToken(t *testing.T, cfg *config.Config) string {
	t.Helper()

	token, _, err := services.NewTokenIssuer("some-other-secret", cfg.JWTIssuer, cfg.JWTAudience).Issue(cfg.AdminEmail)
	if err != nil {
		t.Fatalf("failed to issue foreign token: %v", err)
	}
	return token
}

// Bearer formats an Authorization header value
func Bearer(token string) string {
	return "Bearer " + token
}
