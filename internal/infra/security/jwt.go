package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/infra/config"
)

var (
	// ErrInvalidToken indicates the token failed signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token was valid but is past its expiry.
	ErrExpiredToken = errors.New("token expired")
)

type sessionClaims struct {
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTIssuer mints and verifies HMAC-signed session tokens. Access and
// refresh tokens are signed with independent secrets, so neither can be
// replayed in the other's place.
type JWTIssuer struct {
	cfg config.JWTSettings
	now func() time.Time
}

// TokenIssuerOption customises issuer construction.
type TokenIssuerOption func(*JWTIssuer)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) TokenIssuerOption {
	return func(i *JWTIssuer) {
		if clock != nil {
			i.now = clock
		}
	}
}

// NewTokenIssuer builds a JWTIssuer from the JWT settings.
func NewTokenIssuer(cfg config.JWTSettings, opts ...TokenIssuerOption) (*JWTIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt secrets must be configured")
	}

	issuer := &JWTIssuer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(issuer)
	}

	return issuer, nil
}

// AccessTTL reports the lifetime an access token would receive.
func (i *JWTIssuer) AccessTTL(rememberMe bool) time.Duration {
	if rememberMe && i.cfg.RememberMeTTL > 0 {
		return i.cfg.RememberMeTTL
	}
	return i.cfg.AccessTokenTTL
}

// IssueAccess signs an access token for the account and returns it together
// with the lifetime in seconds.
func (i *JWTIssuer) IssueAccess(account *domain.Account, rememberMe bool) (string, int64, error) {
	ttl := i.AccessTTL(rememberMe)
	token, err := i.sign(account, domain.TokenTypeAccess, ttl, i.cfg.AccessSecret)
	if err != nil {
		return "", 0, err
	}
	return token, int64(ttl.Seconds()), nil
}

// IssueRefresh signs a refresh token for the account.
func (i *JWTIssuer) IssueRefresh(account *domain.Account) (string, error) {
	return i.sign(account, domain.TokenTypeRefresh, i.cfg.RefreshTokenTTL, i.cfg.RefreshSecret)
}

func (i *JWTIssuer) sign(account *domain.Account, kind domain.TokenType, ttl time.Duration, secret string) (string, error) {
	now := i.now().UTC()

	claims := sessionClaims{
		Email:     account.Email,
		TokenType: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, nil
}

// VerifyAccess validates an access token and returns its claims.
func (i *JWTIssuer) VerifyAccess(token string) (*domain.SessionClaims, error) {
	return i.verify(token, domain.TokenTypeAccess, i.cfg.AccessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (i *JWTIssuer) VerifyRefresh(token string) (*domain.SessionClaims, error) {
	return i.verify(token, domain.TokenTypeRefresh, i.cfg.RefreshSecret)
}

func (i *JWTIssuer) verify(token string, kind domain.TokenType, secret string) (*domain.SessionClaims, error) {
	claims := &sessionClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !parsed.Valid || claims.TokenType != string(kind) || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	result := &domain.SessionClaims{
		AccountID: claims.Subject,
		Email:     claims.Email,
		TokenType: kind,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}

var _ port.TokenIssuer = (*JWTIssuer)(nil)
