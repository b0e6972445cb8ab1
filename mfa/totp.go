package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// secretBytes is the raw entropy of a generated TOTP secret. 20 bytes keeps
// the RFC 4226 recommendation and stays above the 160-bit floor.
const secretBytes = 20

const (
	// DefaultDigits is the code length issued and accepted.
	DefaultDigits = 6

	// DefaultPeriod is the TOTP time step in seconds.
	DefaultPeriod = 30

	// DefaultWindow is the number of accepted steps either side of now.
	// Two steps at a 30s period tolerate 60s of clock drift.
	DefaultWindow = 2
)

// Config carries TOTP parameters. Zero values fall back to the defaults in
// NewVerifier.
type Config struct {
	// Issuer appears in provisioning URIs and authenticator app listings.
	Issuer string

	Digits    int
	Period    int
	Window    int
	Algorithm string
}

// Verifier generates MFA enrollment material and verifies submitted codes.
// It holds no state beyond configuration and is safe for concurrent use.
type Verifier struct {
	config Config
}

// Setup is the material returned by a single enrollment.
type Setup struct {
	// Secret is the shared TOTP secret, base32 without padding. Stored by
	// the caller, shown to the user once.
	Secret string

	// ProvisionURI is the otpauth:// payload rendered as a QR code.
	ProvisionURI string

	// BackupCodes are single-use recovery codes in XXXX-XXXX form.
	BackupCodes []string
}

// NewVerifier applies defaults and validates the configuration.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Digits == 0 {
		cfg.Digits = DefaultDigits
	}
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}

	if cfg.Issuer == "" {
		return nil, errors.New("mfa issuer must not be empty")
	}
	if cfg.Digits < 6 || cfg.Digits > 10 {
		return nil, errors.New("mfa digits must be between 6 and 10")
	}
	if cfg.Period < 15 || cfg.Period > 120 {
		return nil, errors.New("mfa period must be between 15 and 120 seconds")
	}
	if cfg.Window < 0 || cfg.Window > 4 {
		return nil, errors.New("mfa window must be between 0 and 4 steps")
	}
	if _, err := hmacFunc(cfg.Algorithm); err != nil {
		return nil, err
	}

	return &Verifier{config: cfg}, nil
}

// GenerateSetup produces a fresh secret, its provisioning URI for the given
// account label, and a set of backup codes.
func (v *Verifier) GenerateSetup(account string) (*Setup, error) {
	secret, err := v.GenerateSecret()
	if err != nil {
		return nil, err
	}

	codes, err := GenerateBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, err
	}

	return &Setup{
		Secret:       secret,
		ProvisionURI: v.ProvisionURI(secret, account),
		BackupCodes:  codes,
	}, nil
}

// GenerateSecret returns a new random secret, base32 encoded without padding.
func (v *Verifier) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth:// URI that authenticator apps consume.
func (v *Verifier) ProvisionURI(secret, account string) string {
	label := url.PathEscape(v.config.Issuer + ":" + account)

	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", v.config.Issuer)
	q.Set("period", strconv.Itoa(v.config.Period))
	q.Set("digits", strconv.Itoa(v.config.Digits))
	q.Set("algorithm", strings.ToUpper(v.config.Algorithm))

	return "otpauth://totp/" + label + "?" + q.Encode()
}

// VerifyCode reports whether code is valid for the base32 secret at the given
// time, accepting the configured window of adjacent steps. Codes that fail
// the format check and secrets that do not decode report false without any
// cryptographic work.
func (v *Verifier) VerifyCode(secret, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if !v.ValidCodeFormat(trimmed) {
		return false
	}

	raw, err := decodeSecret(secret)
	if err != nil {
		return false
	}

	baseCounter := now.Unix() / int64(v.config.Period)
	matched := false
	for step := -v.config.Window; step <= v.config.Window; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(raw, counter, v.config.Digits, v.config.Algorithm)
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			matched = true
		}
	}

	return matched
}

// GenerateCode produces the code for the base32 secret at the given time.
// It exists for provisioning checks and tests; verification must go through
// [Verifier.VerifyCode].
func (v *Verifier) GenerateCode(secret string, now time.Time) (string, error) {
	raw, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotpCode(raw, now.Unix()/int64(v.config.Period), v.config.Digits, v.config.Algorithm)
}

// ValidCodeFormat reports whether code has exactly the configured number of
// decimal digits. Callers use it to reject malformed input before touching
// any secret material.
func (v *Verifier) ValidCodeFormat(code string) bool {
	if len(code) != v.config.Digits {
		return false
	}
	return isNumeric(code)
}

func decodeSecret(secret string) ([]byte, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(secret))
	cleaned = strings.TrimRight(cleaned, "=")
	if cleaned == "" {
		return nil, errors.New("empty totp secret")
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.DecodeString(cleaned)
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}
