package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/infra/config"
	"github.com/codecrafthub/user-service/internal/infra/security"
)

var authTestTime = time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)

func activeAccount() domain.Account {
	return domain.Account{
		ID:           "acc-1",
		Email:        "jane.doe@example.com",
		Username:     "janedoe",
		FirstName:    "Jane",
		LastName:     "Doe",
		PasswordHash: "hashed:CorrectHorse1!",
		Status:       domain.AccountStatusActive,
		Preferences:  domain.DefaultPreferences(),
		Learning:     domain.DefaultLearningProfile(),
		CreatedAt:    authTestTime.Add(-24 * time.Hour),
		UpdatedAt:    authTestTime.Add(-24 * time.Hour),
	}
}

func newAuthFixture(seed ...domain.Account) (*AuthService, *memoryAccounts, *captureEvents, *stubTokens) {
	store := newMemoryAccounts(seed...)
	events := &captureEvents{}
	tokens := &stubTokens{}
	cfg := &config.AppConfig{
		Security: config.SecuritySettings{
			MaxFailedAttempts: 5,
			LockoutDuration:   2 * time.Hour,
		},
	}
	svc := NewAuthService(cfg, store, stubHasher{}, tokens, events, nil)
	svc.WithClock(func() time.Time { return authTestTime })
	return svc, store, events, tokens
}

func TestLoginSuccess(t *testing.T) {
	svc, store, _, _ := newAuthFixture(activeAccount())

	pair, account, err := svc.Login(context.Background(), "jane.doe@example.com", "CorrectHorse1!", false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if account.PasswordHash != "" {
		t.Fatal("expected password hash to be stripped")
	}
	if account.LastLoginAt == nil || !account.LastLoginAt.Equal(authTestTime) {
		t.Fatalf("expected last login at %v, got %v", authTestTime, account.LastLoginAt)
	}

	stored := store.snapshot("acc-1")
	if stored.LastLoginAt == nil {
		t.Fatal("expected login time to be persisted")
	}
}

func TestLoginAcceptsUsernameIdentifier(t *testing.T) {
	svc, _, _, _ := newAuthFixture(activeAccount())

	if _, _, err := svc.Login(context.Background(), "janedoe", "CorrectHorse1!", false); err != nil {
		t.Fatalf("login by username: %v", err)
	}
}

func TestLoginUnknownAndWrongPasswordReturnSameError(t *testing.T) {
	svc, _, _, _ := newAuthFixture(activeAccount())

	_, _, unknownErr := svc.Login(context.Background(), "nobody@example.com", "CorrectHorse1!", false)
	_, _, wrongErr := svc.Login(context.Background(), "jane.doe@example.com", "wrong-password", false)

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown identifier, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatal("expected indistinguishable errors for unknown identifier and wrong password")
	}
}

func TestLoginLocksAfterMaxFailures(t *testing.T) {
	svc, store, events, _ := newAuthFixture(activeAccount())

	for i := 0; i < 5; i++ {
		if _, _, err := svc.Login(context.Background(), "jane.doe@example.com", "wrong-password", false); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	stored := store.snapshot("acc-1")
	if stored.FailedAttempts != 5 {
		t.Fatalf("expected 5 failed attempts, got %d", stored.FailedAttempts)
	}
	if stored.LockedUntil == nil || !stored.LockedUntil.Equal(authTestTime.Add(2*time.Hour)) {
		t.Fatalf("expected lock until %v, got %v", authTestTime.Add(2*time.Hour), stored.LockedUntil)
	}

	if len(events.locked) != 1 {
		t.Fatalf("expected one lock event, got %d", len(events.locked))
	}
	if events.locked[0].FailedAttempts != 5 {
		t.Fatalf("expected lock event to carry 5 attempts, got %d", events.locked[0].FailedAttempts)
	}

	// The correct password does not bypass an active lock.
	if _, _, err := svc.Login(context.Background(), "jane.doe@example.com", "CorrectHorse1!", false); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestLoginFailureAfterLapsedLockRestartsCount(t *testing.T) {
	account := activeAccount()
	lapsed := authTestTime.Add(-time.Minute)
	account.FailedAttempts = 5
	account.LockedUntil = &lapsed

	svc, store, _, _ := newAuthFixture(account)

	if _, _, err := svc.Login(context.Background(), "jane.doe@example.com", "wrong-password", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored := store.snapshot("acc-1")
	if stored.FailedAttempts != 1 {
		t.Fatalf("expected count to restart at 1, got %d", stored.FailedAttempts)
	}
	if stored.LockedUntil != nil {
		t.Fatal("expected lapsed lock to be cleared")
	}
}

func TestLoginSuccessResetsFailedAttempts(t *testing.T) {
	account := activeAccount()
	account.FailedAttempts = 3

	svc, store, _, _ := newAuthFixture(account)

	if _, _, err := svc.Login(context.Background(), "jane.doe@example.com", "CorrectHorse1!", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	if stored := store.snapshot("acc-1"); stored.FailedAttempts != 0 {
		t.Fatalf("expected failed attempts reset, got %d", stored.FailedAttempts)
	}
}

func TestLoginRejectsNonActiveStatuses(t *testing.T) {
	for _, status := range []domain.AccountStatus{
		domain.AccountStatusPending,
		domain.AccountStatusInactive,
		domain.AccountStatusSuspended,
	} {
		account := activeAccount()
		account.Status = status

		svc, _, _, _ := newAuthFixture(account)

		if _, _, err := svc.Login(context.Background(), "jane.doe@example.com", "CorrectHorse1!", false); !errors.Is(err, ErrInactiveAccount) {
			t.Fatalf("status %s: expected ErrInactiveAccount, got %v", status, err)
		}
	}
}

func TestRefreshReturnsSameRefreshToken(t *testing.T) {
	svc, _, _, tokens := newAuthFixture(activeAccount())
	tokens.refreshClaims = &domain.SessionClaims{
		AccountID: "acc-1",
		Email:     "jane.doe@example.com",
		TokenType: domain.TokenTypeRefresh,
	}

	pair, account, err := svc.RefreshAccessToken(context.Background(), "refresh-acc-1-original")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken != "refresh-acc-1-original" {
		t.Fatalf("expected refresh token untouched, got %s", pair.RefreshToken)
	}
	if pair.AccessToken == "" {
		t.Fatal("expected a fresh access token")
	}
	if account.PasswordHash != "" {
		t.Fatal("expected password hash to be stripped")
	}
}

func TestRefreshRejectsExpiredAndInvalidTokens(t *testing.T) {
	svc, _, _, tokens := newAuthFixture(activeAccount())

	tokens.refreshErr = security.ErrExpiredToken
	if _, _, err := svc.RefreshAccessToken(context.Background(), "stale"); !errors.Is(err, ErrExpiredRefreshToken) {
		t.Fatalf("expected ErrExpiredRefreshToken, got %v", err)
	}

	tokens.refreshErr = security.ErrInvalidToken
	if _, _, err := svc.RefreshAccessToken(context.Background(), "garbage"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}

	tokens.refreshErr = nil
	tokens.refreshClaims = &domain.SessionClaims{AccountID: "gone", TokenType: domain.TokenTypeRefresh}
	if _, _, err := svc.RefreshAccessToken(context.Background(), "orphan"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for deleted subject, got %v", err)
	}
}

func TestRefreshRequiresActiveAccount(t *testing.T) {
	account := activeAccount()
	account.Status = domain.AccountStatusPending

	svc, _, _, tokens := newAuthFixture(account)
	tokens.refreshClaims = &domain.SessionClaims{AccountID: "acc-1", TokenType: domain.TokenTypeRefresh}

	if _, _, err := svc.RefreshAccessToken(context.Background(), "refresh-acc-1-1"); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}

func TestParseAccessToken(t *testing.T) {
	svc, _, _, tokens := newAuthFixture(activeAccount())

	tokens.accessClaims = &domain.SessionClaims{AccountID: "acc-1", TokenType: domain.TokenTypeAccess}
	claims, err := svc.ParseAccessToken("access-acc-1-1")
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.AccountID != "acc-1" {
		t.Fatalf("unexpected subject %s", claims.AccountID)
	}

	tokens.accessErr = security.ErrExpiredToken
	if _, err := svc.ParseAccessToken("stale"); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}

	tokens.accessErr = security.ErrInvalidToken
	if _, err := svc.ParseAccessToken("garbage"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}

	if _, err := svc.ParseAccessToken("   "); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken for blank token, got %v", err)
	}
}
