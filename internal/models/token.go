package models

import "time"

// IssuedToken is what the token issuer hands back to callers: the signed
// bearer string plus the metadata clients need to store it.
type IssuedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	JTI         string `json:"-"`
}

// TokenRecord is the server-side state for one issued access token.
// ExpiresAt bounds the access window; SessionExpiresAt bounds the longer
// refresh window that justifies silent reissuance. An access-expired but
// session-valid record still authenticates a request, flagged as expired so
// the session guard can mint a replacement.
type TokenRecord struct {
	JTI              string    `json:"jti"`
	UserID           string    `json:"user_id"`
	IssuedAt         time.Time `json:"issued_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
	Revoked          bool      `json:"revoked"`
}

func (r *TokenRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *TokenRecord) SessionValid(now time.Time) bool {
	return !r.Revoked && now.Before(r.SessionExpiresAt)
}
