package repositories

import (
	"context"
	"time"
)

// ClientStore is a cookie-like key/value store with per-entry expiry.
// Get reports ok=false for absent and expired keys alike.
type ClientStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, key string) error
}

// ExpiredPurger is implemented by stores that keep expired rows until swept
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// HealthChecker is implemented by stores that can report their health
type HealthChecker interface {
	Ping(ctx context.Context) error
}
