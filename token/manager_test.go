package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig() Config {
	return Config{
		Access: KeyConfig{
			Secret:   []byte("test-access-secret-0123456789abcdef"),
			TTL:      15 * time.Minute,
			Issuer:   "authguard",
			Audience: "authguard-api",
		},
		Refresh: KeyConfig{
			Secret:   []byte("test-refresh-secret-0123456789abcdef"),
			TTL:      7 * 24 * time.Hour,
			Issuer:   "authguard-refresh",
			Audience: "authguard-session",
		},
	}
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return m
}

func TestAccessRoundTrip(t *testing.T) {
	m := testManager(t)

	tokenStr, err := m.CreateAccess("u1", "u1@example.com", "member", "pro", "s1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	claims, err := m.ParseAccess(tokenStr)
	if err != nil {
		t.Fatalf("ParseAccess error: %v", err)
	}

	if claims.UserID != "u1" || claims.SessionID != "s1" {
		t.Fatalf("identity claims mismatch: %+v", claims)
	}
	if claims.Email != "u1@example.com" || claims.Role != "member" || claims.SubscriptionLevel != "pro" {
		t.Fatalf("profile claims mismatch: %+v", claims)
	}
	if claims.Issuer != "authguard" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > 15*time.Minute {
		t.Fatal("access expiry not bounded by configured TTL")
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	m := testManager(t)

	tokenStr, err := m.CreateRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("CreateRefresh error: %v", err)
	}

	claims, err := m.ParseRefresh(tokenStr)
	if err != nil {
		t.Fatalf("ParseRefresh error: %v", err)
	}
	if claims.UserID != "u1" || claims.SessionID != "s1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestKindSeparation(t *testing.T) {
	m := testManager(t)

	accessToken, err := m.CreateAccess("u1", "", "", "", "s1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}
	refreshToken, err := m.CreateRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("CreateRefresh error: %v", err)
	}

	if _, err := m.ParseRefresh(accessToken); err == nil {
		t.Fatal("expected access token to fail refresh validation")
	}
	if _, err := m.ParseAccess(refreshToken); err == nil {
		t.Fatal("expected refresh token to fail access validation")
	}
}

func TestExpiredAccessRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Access.TTL = time.Nanosecond

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	tokenStr, err := m.CreateAccess("u1", "", "", "", "s1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := m.ParseAccess(tokenStr); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	m := testManager(t)

	tokenStr, err := m.CreateAccess("u1", "", "", "", "s1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	mid := len(tokenStr) / 2
	flipped := byte('A')
	if tokenStr[mid] == 'A' {
		flipped = 'B'
	}
	tampered := tokenStr[:mid] + string(flipped) + tokenStr[mid+1:]
	if tampered == tokenStr {
		t.Fatal("tampering produced identical token")
	}

	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestIssuerAudienceEnforced(t *testing.T) {
	m := testManager(t)

	other := testConfig()
	other.Access.Issuer = "someone-else"
	foreign, err := NewManager(other)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	tokenStr, err := foreign.CreateAccess("u1", "", "", "", "s1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	if _, err := m.ParseAccess(tokenStr); err == nil {
		t.Fatal("expected token with wrong issuer to be rejected")
	}
}

func TestClaimsVersionEnforced(t *testing.T) {
	m := testManager(t)
	cfg := testConfig()

	claims := AccessClaims{
		Version:   claimsVersion + 1,
		UserID:    "u1",
		SessionID: "s1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    cfg.Access.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Access.Audience},
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Access.Secret)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if _, err := m.ParseAccess(tokenStr); err == nil || !strings.Contains(err.Error(), "claims version") {
		t.Fatalf("expected claims version rejection, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short access secret", func(c *Config) { c.Access.Secret = []byte("short") }},
		{"equal secrets", func(c *Config) { c.Refresh.Secret = c.Access.Secret }},
		{"same issuer audience pair", func(c *Config) {
			c.Refresh.Issuer = c.Access.Issuer
			c.Refresh.Audience = c.Access.Audience
		}},
		{"zero access TTL", func(c *Config) { c.Access.TTL = 0 }},
		{"missing refresh issuer", func(c *Config) { c.Refresh.Issuer = "" }},
		{"excessive leeway", func(c *Config) { c.Leeway = 5 * time.Minute }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewManager(cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}
