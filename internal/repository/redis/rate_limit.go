package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codecrafthub/user-service/internal/core/port"
)

const defaultRateLimitKeyPrefix = "usersvc:rate-limit"

// SlidingWindowConfig tunes the attempt store. TTL caps how long a
// (scope, subject) key outlives its last attempt and should exceed the
// longest window configured for any scope.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitRepository keeps login, register, and password-reset attempts in
// Redis sorted sets, one set per (scope, subject) pair, scored by attempt
// time so windows slide instead of resetting at bucket edges.
type RateLimitRepository struct {
	client *redis.Client
	cfg    SlidingWindowConfig
}

// NewRateLimitRepository constructs an attempt store backed by the provided Redis client.
func NewRateLimitRepository(client *redis.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultRateLimitKeyPrefix
	}
	return &RateLimitRepository{client: client, cfg: cfg}
}

// RecordAttempt stores one attempt for the subject within the scope and refreshes the key TTL.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, scope, subject string, at time.Time) error {
	key, err := r.key(scope, subject)
	if err != nil {
		return err
	}
	member := redis.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()}

	if err := r.client.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("record %s attempt: %w", scope, err)
	}

	if r.cfg.TTL > 0 {
		if err := r.client.Expire(ctx, key, r.cfg.TTL).Err(); err != nil {
			return fmt.Errorf("refresh %s attempt ttl: %w", scope, err)
		}
	}

	return nil
}

// CountAttempts returns how many attempts the subject made inside the window ending at reference time.
func (r *RateLimitRepository) CountAttempts(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) (int, error) {
	key, err := r.key(scope, subject)
	if err != nil {
		return 0, err
	}
	min, max, err := windowBounds(window, reference)
	if err != nil {
		return 0, err
	}

	count, err := r.client.ZCount(ctx, key, min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s attempts: %w", scope, err)
	}

	return int(count), nil
}

// TrimWindow removes attempts that dropped out of the window so stale entries
// never count against the subject.
func (r *RateLimitRepository) TrimWindow(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) error {
	key, err := r.key(scope, subject)
	if err != nil {
		return err
	}
	threshold, _, err := windowBounds(window, reference)
	if err != nil {
		return err
	}

	if err := r.client.ZRemRangeByScore(ctx, key, "-inf", threshold).Err(); err != nil {
		return fmt.Errorf("trim %s attempts: %w", scope, err)
	}

	return nil
}

// OldestAttempt returns the earliest attempt remaining inside the window.
// Callers derive the retry-after hint from it.
func (r *RateLimitRepository) OldestAttempt(ctx context.Context, scope, subject string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	key, err := r.key(scope, subject)
	if err != nil {
		return time.Time{}, false, err
	}
	min, max, err := windowBounds(window, reference)
	if err != nil {
		return time.Time{}, false, err
	}

	values, err := r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:    min,
		Max:    max,
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("find oldest %s attempt: %w", scope, err)
	}

	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	ts, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt timestamp: %w", err)
	}

	return time.Unix(0, ts), true, nil
}

func (r *RateLimitRepository) key(scope, subject string) (string, error) {
	if scope == "" || subject == "" {
		return "", errors.New("scope and subject are required")
	}
	return fmt.Sprintf("%s:%s:%s", r.cfg.KeyPrefix, scope, subject), nil
}

func windowBounds(window time.Duration, reference time.Time) (string, string, error) {
	if window <= 0 {
		return "", "", errors.New("window must be positive")
	}
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))
	return min, max, nil
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
