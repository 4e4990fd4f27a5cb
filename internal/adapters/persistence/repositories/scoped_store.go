package repositories

import (
	"context"
	"time"
)

// scopedStore prefixes every key so that devices and sessions sharing one
// backing store never see each other's entries
type scopedStore struct {
	inner  ClientStore
	prefix string
}

// Scoped returns a view of inner restricted to keys under prefix
func Scoped(inner ClientStore, prefix string) ClientStore {
	return &scopedStore{inner: inner, prefix: prefix + ":"}
}

func (s *scopedStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, value, ttl)
}

func (s *scopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}
