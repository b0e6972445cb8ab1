package mfa

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// BackupCodeCount is the number of codes issued per enrollment.
const BackupCodeCount = 8

// backupCodeBytes yields 8 hex characters, rendered as XXXX-XXXX.
const backupCodeBytes = 4

// GenerateBackupCodes returns count pairwise-distinct single-use codes in
// XXXX-XXXX uppercase-hex form.
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		return nil, errors.New("backup code count must be positive")
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	// Collisions in a 32-bit space are rare but possible; retry a bounded
	// number of times so a broken entropy source cannot spin forever.
	for attempts := 0; len(codes) < count; attempts++ {
		if attempts > count*100 {
			return nil, errors.New("backup code generation exhausted retries")
		}

		raw := make([]byte, backupCodeBytes)
		if _, err := rand.Read(raw); err != nil {
			return nil, err
		}

		code := strings.ToUpper(hex.EncodeToString(raw))
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, FormatBackupCode(code))
	}

	return codes, nil
}

// FormatBackupCode renders a canonical 8-char code as XXXX-XXXX. Inputs that
// are not 8 characters long are returned unchanged.
func FormatBackupCode(code string) string {
	if len(code) != 8 {
		return code
	}
	return code[:4] + "-" + code[4:]
}

// CanonicalizeBackupCode uppercases and strips separators and surrounding
// whitespace so user input matches stored codes regardless of presentation.
func CanonicalizeBackupCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// ValidBackupCodeFormat reports whether code canonicalizes to exactly 8
// uppercase hex characters. Malformed input is rejected before any
// comparison work.
func ValidBackupCodeFormat(code string) bool {
	canonical := CanonicalizeBackupCode(code)
	if len(canonical) != 8 {
		return false
	}
	for i := 0; i < len(canonical); i++ {
		c := canonical[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// VerifyBackupCode checks the submitted code against the stored set and, on a
// match, returns the set with the used code removed. Every candidate is
// compared in constant time and the scan never exits early, so response
// timing does not reveal which position matched. The second return is the
// remaining set (unchanged on a miss).
func VerifyBackupCode(codes []string, provided string) (bool, []string) {
	if !ValidBackupCodeFormat(provided) {
		return false, codes
	}

	target := CanonicalizeBackupCode(provided)
	matched := -1
	for i, candidate := range codes {
		canonical := CanonicalizeBackupCode(candidate)
		if len(canonical) == len(target) &&
			subtle.ConstantTimeCompare([]byte(canonical), []byte(target)) == 1 &&
			matched < 0 {
			matched = i
		}
	}

	if matched < 0 {
		return false, codes
	}

	remaining := make([]string, 0, len(codes)-1)
	remaining = append(remaining, codes[:matched]...)
	remaining = append(remaining, codes[matched+1:]...)
	return true, remaining
}

// HashBackupCode returns the hex SHA-256 digest of the canonical code bound
// to the given salt (typically the owning user ID). A NUL byte separates the
// two so distinct salt/code pairs cannot collide by concatenation.
func HashBackupCode(salt, code string) string {
	canonical := CanonicalizeBackupCode(code)
	data := make([]byte, 0, len(salt)+1+len(canonical))
	data = append(data, salt...)
	data = append(data, 0)
	data = append(data, canonical...)

	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// VerifyHashedBackupCode is the hashed-at-rest variant of VerifyBackupCode:
// it recomputes the salted digest of the submitted code and compares it
// against each stored digest in constant time, returning the remaining
// digests on a match.
func VerifyHashedBackupCode(hashes []string, salt, provided string) (bool, []string) {
	if !ValidBackupCodeFormat(provided) {
		return false, hashes
	}

	target := HashBackupCode(salt, provided)
	matched := -1
	for i, candidate := range hashes {
		normalized := strings.ToLower(strings.TrimSpace(candidate))
		if len(normalized) == len(target) &&
			subtle.ConstantTimeCompare([]byte(normalized), []byte(target)) == 1 &&
			matched < 0 {
			matched = i
		}
	}

	if matched < 0 {
		return false, hashes
	}

	remaining := make([]string, 0, len(hashes)-1)
	remaining = append(remaining, hashes[:matched]...)
	remaining = append(remaining, hashes[matched+1:]...)
	return true, remaining
}
