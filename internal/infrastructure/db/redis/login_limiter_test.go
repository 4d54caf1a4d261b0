package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements the handful of commands the limiter uses. Calling any
// other command panics on the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable
	counters map[string]int64
	ttls     map[string]time.Duration
	err      error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counters: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	n, ok := f.counters[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(n, 10), nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

// TxPipelined runs fn against the fake directly; an injected error fails the
// whole transaction before any command is applied.
func (f *fakeRedis) TxPipelined(_ context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, fn(fakePipe{f: f})
}

type fakePipe struct {
	redis.Pipeliner
	f *fakeRedis
}

func (p fakePipe) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	if _, ok := p.f.counters[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	p.f.counters[key] = 0
	p.f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (p fakePipe) Incr(ctx context.Context, key string) *redis.IntCmd {
	return p.f.Incr(ctx, key)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.counters, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestLoginLimiter_BlocksAfterMaxFailures(t *testing.T) {
	fake := newFakeRedis()
	l := NewLoginLimiter(fake, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		blocked, err := l.Blocked(ctx, "alice")
		if err != nil || blocked {
			t.Fatalf("attempt %d: blocked=%v err=%v", i, blocked, err)
		}
		if err := l.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	blocked, err := l.Blocked(ctx, "alice")
	if err != nil || !blocked {
		t.Fatalf("expected alice to be blocked, got blocked=%v err=%v", blocked, err)
	}
	if fake.ttls["login:fail:alice"] != time.Minute {
		t.Fatalf("expected window ttl on first failure, got %v", fake.ttls["login:fail:alice"])
	}

	// other users are unaffected
	if blocked, _ := l.Blocked(ctx, "bob"); blocked {
		t.Fatalf("bob must not be blocked")
	}
}

func TestLoginLimiter_WindowStartsAtFirstFailure(t *testing.T) {
	fake := newFakeRedis()
	l := NewLoginLimiter(fake, 5, time.Minute)
	ctx := context.Background()
	key := "login:fail:alice"

	if err := l.RecordFailure(ctx, "alice"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if fake.ttls[key] != time.Minute {
		t.Fatalf("counter created without window ttl: %v", fake.ttls[key])
	}

	fake.ttls[key] = 20 * time.Second // part of the window has elapsed
	if err := l.RecordFailure(ctx, "alice"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if fake.ttls[key] != 20*time.Second {
		t.Fatalf("later failures must not extend the window, ttl=%v", fake.ttls[key])
	}
	if fake.counters[key] != 2 {
		t.Fatalf("expected 2 failures, got %d", fake.counters[key])
	}
}

func TestLoginLimiter_Reset(t *testing.T) {
	fake := newFakeRedis()
	l := NewLoginLimiter(fake, 1, time.Minute)
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "alice")
	if blocked, _ := l.Blocked(ctx, "alice"); !blocked {
		t.Fatalf("expected blocked")
	}
	if err := l.Reset(ctx, "alice"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if blocked, _ := l.Blocked(ctx, "alice"); blocked {
		t.Fatalf("expected counter to be cleared")
	}
}

func TestLoginLimiter_RedisErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	l := NewLoginLimiter(fake, 1, time.Minute)

	if _, err := l.Blocked(context.Background(), "alice"); err == nil {
		t.Fatalf("expected error from Blocked")
	}
	if err := l.RecordFailure(context.Background(), "alice"); err == nil {
		t.Fatalf("expected error from RecordFailure")
	}
	if _, ok := fake.counters["login:fail:alice"]; ok {
		t.Fatalf("failed transaction must not leave a counter behind")
	}
}

func TestLoginLimiter_NilIsNoop(t *testing.T) {
	var l *LoginLimiter
	ctx := context.Background()

	if blocked, err := l.Blocked(ctx, "alice"); blocked || err != nil {
		t.Fatalf("nil limiter must never block")
	}
	if err := l.RecordFailure(ctx, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Reset(ctx, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
