package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/codecrafthub/user-service/internal/core/port"
)

type fakeRateLimitStore struct {
	trimErr   error
	count     int
	countErr  error
	oldest    time.Time
	hasOldest bool
	oldestErr error
	recordErr error

	trimmedScopes  []string
	countedScopes  []string
	recordedScope  string
	recordedIP     string
	recordAttempts int
}

func (f *fakeRateLimitStore) TrimWindow(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) error {
	f.trimmedScopes = append(f.trimmedScopes, scope)
	return f.trimErr
}

func (f *fakeRateLimitStore) CountAttempts(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) (int, error) {
	f.countedScopes = append(f.countedScopes, scope)
	return f.count, f.countErr
}

func (f *fakeRateLimitStore) RecordAttempt(ctx context.Context, scope, subject string, at time.Time) error {
	f.recordedScope = scope
	f.recordedIP = subject
	f.recordAttempts++
	return f.recordErr
}

func (f *fakeRateLimitStore) OldestAttempt(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	return f.oldest, f.hasOldest, f.oldestErr
}

func newGuardedRouter(t *testing.T, store *fakeRateLimitStore, now time.Time, scope string, limit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(limiter.Limit(scope, limit, time.Minute))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiterAllowsWhenBelowLimit(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	oldest := now.Add(-30 * time.Second)

	store := &fakeRateLimitStore{
		count:     2,
		oldest:    oldest,
		hasOldest: true,
	}

	router := newGuardedRouter(t, store, now, port.RateLimitScopeLogin, 5)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	if store.recordAttempts != 1 {
		t.Fatalf("expected record attempt to be called once, got %d", store.recordAttempts)
	}

	if store.recordedScope != port.RateLimitScopeLogin {
		t.Fatalf("expected attempt recorded under the login scope, got %q", store.recordedScope)
	}

	if store.recordedIP == "" {
		t.Fatal("expected the client IP as the recorded subject")
	}

	if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}

	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining header 2, got %q", got)
	}

	expectedReset := oldest.Add(time.Minute).Unix()
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(expectedReset, 10) {
		t.Fatalf("expected reset header %d, got %q", expectedReset, got)
	}

	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after header, got %q", got)
	}
}

func TestRateLimiterBlocksWhenLimitExceeded(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	oldest := now.Add(-30 * time.Second)

	store := &fakeRateLimitStore{
		count:     5,
		oldest:    oldest,
		hasOldest: true,
	}

	router := newGuardedRouter(t, store, now, port.RateLimitScopeLogin, 5)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	if store.recordAttempts != 0 {
		t.Fatalf("expected no record attempt when blocked, got %d", store.recordAttempts)
	}

	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected retry-after 30, got %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if problem.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected problem status %d", problem.Status)
	}

	if problem.RetryAfter != 30 {
		t.Fatalf("expected problem retry_after 30, got %d", problem.RetryAfter)
	}
}

func TestRateLimiterScopesAreIndependent(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)

	store := &fakeRateLimitStore{}
	router := newGuardedRouter(t, store, now, port.RateLimitScopeRegister, 3)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	for _, scope := range store.trimmedScopes {
		if scope != port.RateLimitScopeRegister {
			t.Fatalf("expected only the register scope to be consulted, got %q", scope)
		}
	}
	if store.recordedScope != port.RateLimitScopeRegister {
		t.Fatalf("expected attempt recorded under the register scope, got %q", store.recordedScope)
	}
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)

	store := &fakeRateLimitStore{
		trimErr: errors.New("redis down"),
	}

	router := newGuardedRouter(t, store, now, port.RateLimitScopeLogin, 5)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when failing open, got %d", rr.Code)
	}

	if store.recordAttempts != 0 {
		t.Fatalf("expected no record attempt on failure, got %d", store.recordAttempts)
	}
}
