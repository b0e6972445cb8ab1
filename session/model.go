package session

import "time"

// Session is the persisted login session. Its existence in Redis is the
// source of truth for revocation checks.
type Session struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessAt time.Time `json:"lastAccessAt"`
	IsActive     bool      `json:"isActive"`
}

// RefreshRecord tracks a refresh token's one-time-use state. The record is
// deleted when the token is redeemed, so a second redemption finds nothing.
type RefreshRecord struct {
	UserID     string    `json:"userId"`
	SessionID  string    `json:"sessionId"`
	DeviceInfo string    `json:"deviceInfo,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
