// Package cache holds the short-lived user snapshot store used to skip
// storage round-trips while resolving access tokens.
package cache

import (
	"context"
	"time"
)

// DefaultUserTTL bounds how stale a cached user snapshot may be.
const DefaultUserTTL = 300 * time.Second

// Store is a key/value store with per-key expiry. A miss or an expired key is
// reported as found=false, never as an error; errors mean the backend itself
// failed.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Noop never stores anything. Useful to run without a cache at all.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
