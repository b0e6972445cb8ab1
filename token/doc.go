// Package token issues and verifies the access/refresh JWT pair with strict
// validation semantics: each kind is signed with its own secret and carries
// its own issuer/audience pair, so a refresh token can never pass access-token
// validation or vice versa.
package token
