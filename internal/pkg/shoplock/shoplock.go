package shoplock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("timed out waiting for shop lock")

const (
	DefaultTTL     = 30 * time.Second
	DefaultWait    = 5 * time.Second
	retryInterval  = 50 * time.Millisecond
	lockKeyPattern = "lock:shop:%s"
)

// Locker serializes read-check-write sections per shop.
type Locker interface {
	WithLock(ctx context.Context, shop string, fn func() error) error
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds one lock per shop across every app instance.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, ttl: DefaultTTL, wait: DefaultWait}
}

// WithTimeouts overrides the key TTL and the maximum wait for acquisition.
func (l *RedisLocker) WithTimeouts(ttl, wait time.Duration) *RedisLocker {
	l.ttl = ttl
	l.wait = wait
	return l
}

func (l *RedisLocker) WithLock(ctx context.Context, shop string, fn func() error) error {
	key := fmt.Sprintf(lockKeyPattern, shop)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return fmt.Errorf("failed to acquire shop lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return ErrLockTimeout
		case <-time.After(retryInterval):
		}
	}

	defer func() {
		_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
	}()
	return fn()
}

// LocalLocker keeps one mutex per shop inside the process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	wait  time.Duration
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{}), wait: DefaultWait}
}

func (l *LocalLocker) slot(shop string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[shop]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[shop] = ch
	}
	return ch
}

func (l *LocalLocker) WithLock(ctx context.Context, shop string, fn func() error) error {
	ch := l.slot(shop)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return ErrLockTimeout
	case <-timer.C:
		return ErrLockTimeout
	}
	defer func() { <-ch }()
	return fn()
}

// New returns a Redis-backed locker when a client is given, otherwise a
// process-local one.
func New(client *redis.Client) Locker {
	if client == nil {
		return NewLocalLocker()
	}
	return NewRedisLocker(client)
}
