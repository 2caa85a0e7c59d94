package port

import (
	"context"
	"time"
)

// Rate-limit scopes. Each scope owns its own attempt windows: the transport
// layer counts per client IP, the password flow counts per email address.
const (
	RateLimitScopeLogin         = "login"
	RateLimitScopeRegister      = "register"
	RateLimitScopePasswordReset = "password_reset"
)

// RateLimitStore records attempts per (scope, subject) pair so sliding-window
// limits can be enforced on the authentication endpoints. The subject is the
// client IP for endpoint limits and the target email for the reset flow.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, scope, subject string, at time.Time) error
	OldestAttempt(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
