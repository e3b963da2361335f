package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// DefaultLockPrefix namespaces lock keys
const DefaultLockPrefix = "notes:lock:"

// Lock implements DistributedLock using Redis SET NX with TTL.
// Each instance holds a unique owner token so that a lock can only be
// released or extended by the instance that acquired it.
type Lock struct {
	client  *redis.Client
	prefix  string
	ownerID string
}

// LockOption configures a Lock
type LockOption func(*Lock)

// WithLockPrefix overrides the key prefix
func WithLockPrefix(prefix string) LockOption {
	return func(l *Lock) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// NewLock creates a new Redis-backed distributed lock.
func NewLock(client *redis.Client, opts ...LockOption) *Lock {
	hostname, _ := os.Hostname()
	l := &Lock{
		client:  client,
		prefix:  DefaultLockPrefix,
		ownerID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lock) key(name string) string {
	return l.prefix + name
}

// Acquire attempts to acquire a named lock with the given TTL.
// The lock is not reentrant: a second Acquire by the same instance fails.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// releaseScript deletes the key only while it still holds our owner token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release releases a named lock if held by this instance.
// Safe to call even if the lock is not held or has expired.
func (l *Lock) Release(ctx context.Context, name string) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// extendScript resets the TTL only while the key holds our owner token.
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend extends the TTL of a currently held lock.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID returns the unique identifier for this lock instance.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
