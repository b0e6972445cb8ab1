package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used when none is configured.
	DefaultCost = 12

	// DefaultMinLength is the minimum password length enforced by policy.
	DefaultMinLength = 8

	// maxPasswordBytes is the bcrypt input limit; longer inputs would be
	// silently truncated by the algorithm, so they are rejected instead.
	maxPasswordBytes = 72
)

// ErrPolicy marks password strength policy violations. The wrapped message
// names the first unmet requirement.
var ErrPolicy = errors.New("password policy violation")

// Config holds hashing parameters. Zero values fall back to the package
// defaults in NewHasher.
type Config struct {
	Cost      int
	MinLength int
}

// Hasher hashes and verifies credentials with bcrypt.
type Hasher struct {
	config Config
}

// NewHasher validates the configuration and returns a ready Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Cost == 0 {
		cfg.Cost = DefaultCost
	}
	if cfg.MinLength == 0 {
		cfg.MinLength = DefaultMinLength
	}

	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.MinLength < 1 {
		return nil, errors.New("minimum password length must be >= 1")
	}

	return &Hasher{config: cfg}, nil
}

// Hash enforces the strength policy and returns the bcrypt digest of password.
// Policy violations return an [ErrPolicy] wrap and nothing is hashed.
func (h *Hasher) Hash(password string) (string, error) {
	if err := h.CheckPolicy(password); err != nil {
		return "", err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.config.Cost)
	if err != nil {
		return "", err
	}

	return string(digest), nil
}

// Compare reports whether password matches the stored bcrypt digest. It never
// returns an error: malformed digests, empty inputs, and mismatches all
// report false.
func (h *Hasher) Compare(password, digest string) bool {
	if password == "" || digest == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// NeedsRehash reports whether the stored digest was produced with a weaker
// work factor than currently configured. Unparseable digests report true so
// the caller re-hashes on the next successful verification.
func (h *Hasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}

	return cost < h.config.Cost
}

// CheckPolicy validates password against the strength policy without hashing.
func (h *Hasher) CheckPolicy(password string) error {
	if len(password) < h.config.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPolicy, h.config.MinLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrPolicy, maxPasswordBytes)
	}

	classes := classifyRunes(password)
	switch {
	case !classes.lower:
		return fmt.Errorf("%w: must contain a lowercase letter", ErrPolicy)
	case !classes.upper:
		return fmt.Errorf("%w: must contain an uppercase letter", ErrPolicy)
	case !classes.digit:
		return fmt.Errorf("%w: must contain a digit", ErrPolicy)
	case !classes.symbol:
		return fmt.Errorf("%w: must contain a symbol", ErrPolicy)
	}

	return nil
}
