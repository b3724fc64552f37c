package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned by Acquire when the lock stayed held for the
// whole wait.
var ErrLockTimeout = errors.New("cache: lock wait timed out")

// Locker serialises work on a key across goroutines (MemoryLocker) or
// processes (RedisLocker).
type Locker interface {
	// Acquire blocks until key is held or ctx ends. The returned func
	// releases the lock; it is safe to call once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

const lockRetry = 25 * time.Millisecond

// ─── Redis ────────────────────────────────────────────────────────────────────

// releaseScript deletes the key only when it still holds our token, so a
// lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: "lock:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, err
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.Background(), l.rdb, []string{full}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// ─── In-process ───────────────────────────────────────────────────────────────

type memLock struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker is a keyed mutex for a single process. ttl is ignored.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memLock
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*memLock)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &memLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, lk)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.drop(key, lk)
		})
	}, nil
}

func (l *MemoryLocker) drop(key string, lk *memLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}
