package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the smallest accepted signing secret. HS256 secrets
// shorter than the hash output weaken the MAC.
const MinSecretBytes = 32

// claimsVersion is the current claims schema. Tokens carrying any other
// version fail verification, so a schema change invalidates old tokens
// instead of being misread.
const claimsVersion = 1

// KeyConfig describes one token kind: its signing secret, lifetime, and the
// issuer/audience pair stamped into and required from every token.
type KeyConfig struct {
	Secret   []byte
	TTL      time.Duration
	Issuer   string
	Audience string
}

// Config wires the access and refresh kinds. The two secrets and the two
// issuer/audience pairs must differ; NewManager enforces this.
type Config struct {
	Access  KeyConfig
	Refresh KeyConfig

	// Leeway tolerates small clock skew during expiry checks.
	Leeway time.Duration
}

// Manager signs and parses both token kinds. Immutable after construction
// and safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims is the fixed access-token payload.
type AccessClaims struct {
	Version           int    `json:"v"`
	UserID            string `json:"userId"`
	Email             string `json:"email,omitempty"`
	Role              string `json:"role,omitempty"`
	SubscriptionLevel string `json:"subscriptionLevel,omitempty"`
	SessionID         string `json:"sessionId"`
	jwt.RegisteredClaims
}

// RefreshClaims is the fixed refresh-token payload. Identity attributes are
// deliberately absent: a refresh token only proves session ownership.
type RefreshClaims struct {
	Version   int    `json:"v"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// NewManager validates the configuration and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if err := validateKeyConfig("access", cfg.Access); err != nil {
		return nil, err
	}
	if err := validateKeyConfig("refresh", cfg.Refresh); err != nil {
		return nil, err
	}
	if bytes.Equal(cfg.Access.Secret, cfg.Refresh.Secret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Access.Issuer == cfg.Refresh.Issuer && cfg.Access.Audience == cfg.Refresh.Audience {
		return nil, errors.New("access and refresh issuer/audience pairs must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg}, nil
}

func validateKeyConfig(kind string, cfg KeyConfig) error {
	if len(cfg.Secret) < MinSecretBytes {
		return fmt.Errorf("%s secret must be at least %d bytes", kind, MinSecretBytes)
	}
	if cfg.TTL <= 0 {
		return fmt.Errorf("%s TTL must be positive", kind)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return fmt.Errorf("%s issuer and audience must be set", kind)
	}
	return nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.Access.TTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.Refresh.TTL }

// CreateAccess signs an access token for the given identity and session.
func (m *Manager) CreateAccess(userID, email, role, subscriptionLevel, sessionID string) (string, error) {
	if userID == "" || sessionID == "" {
		return "", errors.New("userID and sessionID are required")
	}

	now := time.Now()
	claims := AccessClaims{
		Version:           claimsVersion,
		UserID:            userID,
		Email:             email,
		Role:              role,
		SubscriptionLevel: subscriptionLevel,
		SessionID:         sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Access.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Access.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Access.Audience},
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Access.Secret)
}

// CreateRefresh signs a refresh token binding userID to sessionID.
func (m *Manager) CreateRefresh(userID, sessionID string) (string, error) {
	if userID == "" || sessionID == "" {
		return "", errors.New("userID and sessionID are required")
	}

	now := time.Now()
	claims := RefreshClaims{
		Version:   claimsVersion,
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Refresh.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Refresh.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Refresh.Audience},
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Refresh.Secret)
}

// ParseAccess verifies signature, issuer, audience, expiry, and schema
// version, returning the claims on success.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	parser := m.newParser(m.config.Access)

	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Access.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Version != claimsVersion {
		return nil, errors.New("unsupported claims version")
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// ParseRefresh is the refresh-kind counterpart of ParseAccess.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	parser := m.newParser(m.config.Refresh)

	token, err := parser.ParseWithClaims(tokenStr, &RefreshClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Refresh.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Version != claimsVersion {
		return nil, errors.New("unsupported claims version")
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

func (m *Manager) newParser(cfg KeyConfig) *jwt.Parser {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	return jwt.NewParser(options...)
}
