package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codecrafthub/user-service/internal/core/port"
)

const (
	rateLimitProblemType  = "https://users.codecrafthub.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// RateLimiter guards the anonymous auth endpoints (login, register, forgot
// password) with a per-client-IP sliding window. The email-keyed reset
// throttle lives in the password service; this middleware only covers the
// transport-level scopes.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

type limitDecision struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	RetryAfter int            `json:"retry_after"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// Limit returns a Gin middleware enforcing the scope's sliding window per
// client IP. Store failures fail open: an unavailable Redis must not take the
// auth endpoints down with it.
func (rl *RateLimiter) Limit(scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.store == nil || scope == "" || limit <= 0 || window <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		decision, err := rl.evaluate(c, scope, ip, limit, window)
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("scope", scope),
				zap.String("client_ip", ip),
				zap.Error(err))
			c.Next()
			return
		}

		rl.applyHeaders(c, decision)

		if !decision.allowed {
			rl.respondRateLimited(c, decision)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) evaluate(c *gin.Context, scope, ip string, limit int, window time.Duration) (limitDecision, error) {
	ctx := c.Request.Context()
	now := rl.now()

	if err := rl.store.TrimWindow(ctx, scope, ip, window, now); err != nil {
		return limitDecision{}, err
	}

	count, err := rl.store.CountAttempts(ctx, scope, ip, window, now)
	if err != nil {
		return limitDecision{}, err
	}

	oldest, hasAttempts, err := rl.store.OldestAttempt(ctx, scope, ip, window, now)
	if err != nil {
		return limitDecision{}, err
	}

	decision := limitDecision{
		allowed: true,
		limit:   limit,
		reset:   now.Add(window),
	}
	if hasAttempts {
		decision.reset = oldest.Add(window)
	}

	if count >= limit {
		decision.allowed = false
		decision.remaining = 0
		decision.retryAfter = decision.reset.Sub(now)
		if decision.retryAfter < 0 {
			decision.retryAfter = 0
		}
		return decision, nil
	}

	if err := rl.store.RecordAttempt(ctx, scope, ip, now); err != nil {
		return limitDecision{}, err
	}

	decision.remaining = limit - count - 1
	if decision.remaining < 0 {
		decision.remaining = 0
	}
	if !hasAttempts {
		decision.reset = now.Add(window)
	}

	return decision, nil
}

func (rl *RateLimiter) applyHeaders(c *gin.Context, decision limitDecision) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.reset.Unix(), 10))

	if !decision.allowed {
		seconds := int(math.Ceil(decision.retryAfter.Seconds()))
		if seconds < 0 {
			seconds = 0
		}
		headers.Set("Retry-After", strconv.Itoa(seconds))
	}
}

func (rl *RateLimiter) respondRateLimited(c *gin.Context, decision limitDecision) {
	retrySeconds := int(math.Ceil(decision.retryAfter.Seconds()))
	if retrySeconds < 0 {
		retrySeconds = 0
	}

	detail := "Too many requests. Try again in " + strconv.Itoa(retrySeconds) + " seconds."
	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	problem := ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     detail,
		Instance:   instance,
		RetryAfter: retrySeconds,
		TraceID:    GetTraceID(c),
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
}
