package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gpuprices/pkg/logger"
)

const (
	defaultTTL         = 30 * time.Second
	acquireTimeout     = 5 * time.Second
	renewInterval      = 10 * time.Second
	defaultMaxHoldTime = 10 * time.Minute
)

// Delete or extend the key only while it still carries our token
const (
	unlockScript = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`
	renewScript = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("expire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`
)

// DistributedLock is a cross-replica mutex for scheduled work
type DistributedLock interface {
	// TryLock attempts to take the lock without waiting for it
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock if this instance still holds it
	Unlock(ctx context.Context) error

	// IsHeld reports whether this instance holds the lock
	IsHeld() bool
}

// RedisDistributedLock is a SET NX lock renewed in the background while held.
// With a nil client it runs in single-instance mode and always succeeds.
type RedisDistributedLock struct {
	client  *redis.Client
	key     string
	token   string
	ttl     time.Duration
	maxHold time.Duration

	mu           sync.Mutex
	held         bool
	acquiredAt   time.Time
	stopRenew    chan struct{}
	renewStopped bool
}

// NewRedisDistributedLock creates a lock on key
func NewRedisDistributedLock(client *redis.Client, key string) *RedisDistributedLock {
	return &RedisDistributedLock{
		client:  client,
		key:     key,
		token:   uuid.New().String(),
		ttl:     defaultTTL,
		maxHold: defaultMaxHoldTime,
	}
}

// SetMaxHold bounds how long the lock is renewed; after that it is left to expire
func (l *RedisDistributedLock) SetMaxHold(d time.Duration) {
	if d > 0 {
		l.maxHold = d
	}
}

// TryLock attempts to take the lock
func (l *RedisDistributedLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		logger.Warn("redis client is nil, skipping distributed lock (running in single-instance mode)")
		l.mu.Lock()
		l.held = true
		l.mu.Unlock()
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !acquired {
		logger.DebugCtx(ctx, "lock %s already held by another instance", l.key)
		return false, nil
	}

	l.mu.Lock()
	l.held = true
	l.acquiredAt = time.Now()
	// fresh channel per acquisition so TryLock/Unlock can cycle
	l.stopRenew = make(chan struct{})
	l.renewStopped = false
	stop := l.stopRenew
	l.mu.Unlock()

	go l.renew(ctx, stop)

	logger.DebugCtx(ctx, "lock %s acquired", l.key)
	return true, nil
}

// Unlock releases the lock
func (l *RedisDistributedLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if l.client == nil {
		l.held = false
		l.mu.Unlock()
		return nil
	}
	if l.stopRenew != nil && !l.renewStopped {
		l.renewStopped = true
		close(l.stopRenew)
	}
	wasHeld := l.held
	l.held = false
	l.mu.Unlock()

	if !wasHeld {
		return nil
	}

	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if result == 1 {
		logger.DebugCtx(ctx, "lock %s released", l.key)
	} else {
		logger.WarnCtx(ctx, "lock %s was already released or taken over", l.key)
	}
	return nil
}

// IsHeld reports whether this instance holds the lock
func (l *RedisDistributedLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

func (l *RedisDistributedLock) renew(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			holdDuration := time.Since(l.acquiredAt)
			l.mu.Unlock()

			if holdDuration > l.maxHold {
				// Unlock stays with the owner; only stop extending
				logger.WarnCtx(ctx, "lock %s held for %.0f seconds, no longer renewing", l.key, holdDuration.Seconds())
				l.markLost()
				return
			}

			result, err := l.client.Eval(ctx, renewScript, []string{l.key}, l.token, int(l.ttl.Seconds())).Int64()
			if err != nil {
				logger.WarnCtx(ctx, "failed to renew lock %s: %v", l.key, err)
				l.markLost()
				return
			}
			if result == 0 {
				logger.WarnCtx(ctx, "lock %s lost before renewal", l.key)
				l.markLost()
				return
			}
			logger.DebugCtx(ctx, "lock %s renewed", l.key)
		}
	}
}

func (l *RedisDistributedLock) markLost() {
	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
}
