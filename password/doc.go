// Package password implements credential hashing, strength policy, and
// reset-token commitments on top of bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt strings ($2a$ prefix) produced by
// golang.org/x/crypto/bcrypt with a configurable work factor (default cost 12).
// The cost is embedded in the hash, so [Hasher.NeedsRehash] can detect digests
// produced with a weaker factor and callers can re-hash on the next successful
// login.
//
// # Policy before hashing
//
// [Hasher.Hash] enforces the strength policy first: minimum length plus at
// least one lowercase letter, one uppercase letter, one digit, and one symbol.
// Policy failures are reported as [ErrPolicy] wraps and nothing is hashed.
//
// # Architecture boundaries
//
// This package owns hashing, verification, scoring, random generation, and
// reset-token commitments. It never stores anything: callers supply plaintext
// and persist the results themselves.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials or reset tokens.
//   - Import any other authguard package.
//   - Log plaintext passwords or derived material.
package password
