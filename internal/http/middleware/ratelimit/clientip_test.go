package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/http/middleware"
)

func TestClientIP_FallbackToRemoteAddr(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "http://example/", nil)
	r.RemoteAddr = "not-a-hostport"

	if got := clientIP(r); got != "not-a-hostport" {
		t.Fatalf("expected remote addr fallback, got %q", got)
	}
}

func TestClientIP_Unknown(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "http://example/", nil)
	r.RemoteAddr = ""

	if got := clientIP(r); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestClientKey_PrefersAuthenticatedEntity(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "http://example/", nil)
	r.RemoteAddr = "10.0.0.1:4000"
	if got := clientKey(r); got != "ip:10.0.0.1" {
		t.Fatalf("expected ip key, got %q", got)
	}

	carrier := domain.AuthContext{UserID: 200, Role: domain.RoleMember, EntityType: domain.EntityCarrier, EntityID: 10}
	r = r.WithContext(middleware.WithAuth(r.Context(), carrier))
	if got := clientKey(r); got != "carrier:10" {
		t.Fatalf("expected entity key, got %q", got)
	}

	admin := domain.AuthContext{UserID: 1, Role: domain.RoleAdmin, EntityType: domain.EntityPlatform}
	r = r.WithContext(middleware.WithAuth(r.Context(), admin))
	if got := clientKey(r); got != "user:1" {
		t.Fatalf("expected user key, got %q", got)
	}
}
