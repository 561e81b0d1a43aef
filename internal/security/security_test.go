package security

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"familypoints/internal/models"
)

func TestHashPassword(t *testing.T) {
	password := "testPassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == password {
		t.Error("HashPassword() returned an unusable hash")
	}

	// Same password produces different hashes due to salt
	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashPassword() should produce different hashes due to salt")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "mySecurePassword"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct password", password, hash, true},
		{"incorrect password", "wrongPassword", hash, false},
		{"empty password", "", hash, false},
		{"garbage hash", password, "not-a-hash", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenManagerRoundTrip(t *testing.T) {
	m := NewTokenManager("0123456789abcdef", time.Hour)
	account := &models.Account{ID: 42, Role: models.RoleParent}

	token, expiresAt, err := m.Issue(account)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expiresAt = %v, want future", expiresAt)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	id, _ := claims.AccountID()
	if id != 42 || claims.Role != models.RoleParent {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a token ID")
	}
}

func TestTokenManagerRejects(t *testing.T) {
	m := NewTokenManager("0123456789abcdef", time.Hour)
	account := &models.Account{ID: 1, Role: models.RoleChild}
	token, _, err := m.Issue(account)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewTokenManager("fedcba9876543210", time.Hour)
	expired := NewTokenManager("0123456789abcdef", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name    string
		manager *TokenManager
		token   string
	}{
		{"wrong secret", other, token},
		{"expired", expired, token},
		{"garbage", m, "not.a.token"},
		{"tampered", m, token[:len(token)-2] + "xx"},
		{"empty", m, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Parse(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3, time.Minute)
	rl.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients have their own bucket")
	}

	current = current.Add(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Error("bucket should refill after the window")
	}

	current = current.Add(5 * time.Minute)
	rl.cleanup()
	if len(rl.visitors) != 0 {
		t.Errorf("cleanup left %d visitors", len(rl.visitors))
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/login", strings.NewReader(""))
	r.RemoteAddr = "192.0.2.7:51234"
	if got := ClientIP(r); got != "192.0.2.7" {
		t.Errorf("ClientIP() = %q", got)
	}
	r.RemoteAddr = "192.0.2.8"
	if got := ClientIP(r); got != "192.0.2.8" {
		t.Errorf("ClientIP() = %q", got)
	}
}
