package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/repository"
	"github.com/codecrafthub/user-service/internal/usecase"
)

// tokenLookupAccounts stubs only the token lookup methods the verification
// and reset flows touch before failing.
type tokenLookupAccounts struct {
	port.AccountRepository

	verifyAccount *domain.Account
	verifyErr     error
	resetAccount  *domain.Account
	resetErr      error
}

func (s *tokenLookupAccounts) FindByVerificationToken(_ context.Context, _ string) (*domain.Account, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.verifyAccount, nil
}

func (s *tokenLookupAccounts) FindByResetTokenHash(_ context.Context, _ string) (*domain.Account, error) {
	if s.resetErr != nil {
		return nil, s.resetErr
	}
	return s.resetAccount, nil
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestVerifyEmailHidesWhetherTokenExisted(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)

	newRouter := func(accounts *tokenLookupAccounts) *gin.Engine {
		service := usecase.NewRegistrationService(nil, accounts, nil, nil, nil, nil, nil)
		service.WithClock(func() time.Time { return now })

		router := gin.New()
		handler := NewRegistrationHandler(service)
		router.POST("/verify-email", handler.VerifyEmail)
		return router
	}

	unknownRouter := newRouter(&tokenLookupAccounts{verifyErr: repository.ErrNotFound})
	expiredRouter := newRouter(&tokenLookupAccounts{verifyAccount: &domain.Account{
		ID:                    "acc-1",
		VerificationExpiresAt: &expired,
	}})

	unknown := postJSON(t, unknownRouter, "/verify-email", `{"token":"no-such-token"}`)
	stale := postJSON(t, expiredRouter, "/verify-email", `{"token":"stale-token"}`)

	if unknown.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown token, got %d", unknown.Code)
	}
	if stale.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an expired token, got %d", stale.Code)
	}

	if unknown.Body.String() != stale.Body.String() {
		t.Fatalf("expected identical bodies for unknown and expired tokens, got %q vs %q",
			unknown.Body.String(), stale.Body.String())
	}
}
