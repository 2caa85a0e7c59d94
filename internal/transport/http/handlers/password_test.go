package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codecrafthub/user-service/internal/core/domain"
	"github.com/codecrafthub/user-service/internal/repository"
	"github.com/codecrafthub/user-service/internal/usecase"
)

func TestResetPasswordHidesWhetherTokenExisted(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)

	newRouter := func(accounts *tokenLookupAccounts) *gin.Engine {
		service := usecase.NewPasswordService(nil, accounts, nil, nil, nil, nil, nil)
		service.WithClock(func() time.Time { return now })

		router := gin.New()
		handler := NewPasswordHandler(service)
		router.POST("/reset-password", handler.ResetPassword)
		return router
	}

	unknownRouter := newRouter(&tokenLookupAccounts{resetErr: repository.ErrNotFound})
	expiredRouter := newRouter(&tokenLookupAccounts{resetAccount: &domain.Account{
		ID:             "acc-1",
		ResetExpiresAt: &expired,
	}})

	body := `{"token":"some-token","new_password":"NewPassword1!"}`
	unknown := postJSON(t, unknownRouter, "/reset-password", body)
	stale := postJSON(t, expiredRouter, "/reset-password", body)

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
