package port

import "github.com/codecrafthub/user-service/internal/core/domain"

// PasswordContext carries account attributes that a password must not echo.
type PasswordContext struct {
	Email    string
	Username string
}

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, ctx PasswordContext) error
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// TokenIssuer mints and verifies the signed session tokens handed to clients.
type TokenIssuer interface {
	IssueAccess(account *domain.Account, rememberMe bool) (string, int64, error)
	IssueRefresh(account *domain.Account) (string, error)
	VerifyAccess(token string) (*domain.SessionClaims, error)
	VerifyRefresh(token string) (*domain.SessionClaims, error)
}
