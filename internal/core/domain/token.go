package domain

import "time"

// TokenType distinguishes the two signed token flavors.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// SessionClaims is the verified content of a signed session token.
type SessionClaims struct {
	AccountID string
	Email     string
	TokenType TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}
