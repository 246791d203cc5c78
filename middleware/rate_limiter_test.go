package middleware

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPGeneric_DirectRemote(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	ip := clientIPGeneric(req, nil)
	if ip != "203.0.113.5" {
		t.Fatalf("expected direct remote IP, got %s", ip)
	}
}

func TestClientIPGeneric_TrustedProxyXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.10:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.10")
	// trustedCIDR contains the remote IP
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "203.0.113.7" {
		t.Fatalf("expected X-Forwarded-For first value, got %s", ip)
	}
}

func TestClientIPGeneric_UntrustedProxyIgnoresXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.11:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 198.51.100.11")
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "198.51.100.11" {
		t.Fatalf("expected remote IP when proxy untrusted, got %s", ip)
	}
}

func TestAccountLockout_Progressive(t *testing.T) {
	id := "4f2c9e1a-0b3d-4c5e-8f6a-7b8c9d0e1f2a"

	if locked, _ := IsAccountLocked(id); locked {
		t.Fatal("fresh account should not be locked")
	}

	RecordFailedLogin(id)
	locked, remaining := IsAccountLocked(id)
	if !locked {
		t.Fatal("expected lock after first failure")
	}
	if remaining <= 0 || remaining > time.Minute {
		t.Fatalf("first lock should be at most one minute, got %v", remaining)
	}

	RecordFailedLogin(id)
	_, remaining = IsAccountLocked(id)
	if remaining <= time.Minute {
		t.Fatalf("second lock should exceed the first, got %v", remaining)
	}
}

func TestAccountLockout_ResetClearsState(t *testing.T) {
	id := "9a8b7c6d-5e4f-3a2b-1c0d-e9f8a7b6c5d4"

	RecordFailedLogin(id)
	RecordFailedLogin(id)
	ResetFailedLogin(id)

	if locked, _ := IsAccountLocked(id); locked {
		t.Fatal("reset should clear the lock")
	}

	// counter restarts from zero after a reset
	RecordFailedLogin(id)
	_, remaining := IsAccountLocked(id)
	if remaining > time.Minute {
		t.Fatalf("post-reset failure should lock for at most one minute, got %v", remaining)
	}
	ResetFailedLogin(id)
}
