package authguard

import (
	"context"
	"time"

	"github.com/reachly/authguard/mfa"
	"github.com/reachly/authguard/session"
	"github.com/reachly/authguard/token"
)

// IssueInput identifies the principal a new session is issued for. UserID is
// required; the remaining fields are embedded into the access token claims as
// given and never looked up by the Engine.
type IssueInput struct {
	UserID            string
	Email             string
	Role              string
	SubscriptionLevel string

	// DeviceInfo is a caller-supplied label ("iPhone 15, Safari") stored on
	// the refresh record for device listings.
	DeviceInfo string
}

// TokenPair is the result of [Engine.Issue], [Engine.Refresh], and a
// successful [Engine.Login]. ExpiresAt is the access token expiry.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	ExpiresAt    time.Time
}

// UserDirectory is the credential lookup interface callers implement to use
// [Engine.Login]. The Engine never creates, updates, or deletes users;
// account lifecycle stays with the caller. Lookups for unknown identifiers
// return [ErrUserNotFound].
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, userID string) (UserRecord, error)
}

// UserRecord is the account snapshot returned by [UserDirectory].
// TOTPSecret is the base32 secret from enrollment, set only when MFAEnabled.
type UserRecord struct {
	UserID            string
	Email             string
	PasswordHash      string
	Role              string
	SubscriptionLevel string
	MFAEnabled        bool
	TOTPSecret        string
}

// AccessClaims is re-exported from the token package; most callers only ever
// see it through [Engine.VerifyAccess].
type AccessClaims = token.AccessClaims

// Session is re-exported from the session package for [Engine.ListSessions]
// results.
type Session = session.Session

// TOTPSetup is re-exported from the mfa package for
// [Engine.GenerateTOTPSetup] results.
type TOTPSetup = mfa.Setup
