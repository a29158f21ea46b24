package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"velour/internal/timewin"
)

// dayKey identifies one stylist-day critical section.
func dayKey(stylistID int64, date timewin.Date) string {
	return fmt.Sprintf("%d|%s", stylistID, date)
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// LockMap serializes commits per stylist-day. Slot queries never touch it;
// only "re-validate then persist" runs inside a lock, and the critical
// section stays short.
type LockMap struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewLockMap constructs an empty lock map.
func NewLockMap() *LockMap {
	return &LockMap{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the key's lock is held or ctx expires. On success the
// returned function releases the lock; entries are dropped once unreferenced.
func (l *LockMap) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.release(key, e)
		}, nil
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}
}

func (l *LockMap) release(key string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// uniqueSorted deduplicates and sorts lock keys. Locking in one fixed order
// is what keeps concurrent reschedules spanning the same two stylist-days
// from deadlocking.
func uniqueSorted(keys []string) []string {
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		seen := false
		for _, u := range uniq {
			if u == k {
				seen = true
				break
			}
		}
		if !seen {
			uniq = append(uniq, k)
		}
	}
	sort.Strings(uniq)
	return uniq
}

// AcquireOrdered locks multiple keys in sorted order. Duplicate keys are
// locked once.
func (l *LockMap) AcquireOrdered(ctx context.Context, keys ...string) (func(), error) {
	var releases []func()
	for _, k := range uniqueSorted(keys) {
		release, err := l.Acquire(ctx, k)
		if err != nil {
			for i := len(releases) - 1; i >= 0; i-- {
				releases[i]()
			}
			return nil, err
		}
		releases = append(releases, release)
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}, nil
}

// RedisLock is an optional cross-instance guard layered over the in-process
// LockMap when several server replicas share one database. Best effort SET
// NX with a TTL; single-instance deployments run without it.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLock wraps a redis client for booking locks.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLock{client: client, ttl: ttl}
}

// Acquire spins on SET NX until the lock is held or ctx expires.
func (r *RedisLock) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := "velour:booking_lock:" + key
	for {
		ok, err := r.client.SetNX(ctx, redisKey, 1, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() {
				delCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = r.client.Del(delCtx, redisKey).Err()
			}, nil
		}
		select {
		case <-time.After(25 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
