package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wanterio/wanterio-backend/pkg/config"
)

func TestSetGetDelLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.LocalStateKey("tab-1", "wanterio_cart")
	if err := client.Set(ctx, key, `{"items":[]}`, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != `{"items":[]}` {
		t.Fatalf("unexpected value %q", got)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, ErrNil) {
		t.Fatalf("expected ErrNil after delete, got %v", err)
	}
}

func TestIncrWithTTLSetsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("sign_in:ip:1.2.3.4")

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("incr failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d got %d", want, got)
		}
		if want == 1 {
			delete(mock.ttls, key)
		}
	}
	if _, ok := mock.ttls[key]; ok {
		t.Fatal("ttl should only be set on the first increment")
	}
}

func TestSetNXOnlyWritesMissingKeys(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.LockKey("cron-worker")

	ok, err := client.SetNX(ctx, key, "owner-a", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first setnx should win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "owner-b", time.Hour)
	if err != nil || ok {
		t.Fatalf("second setnx should lose, ok=%v err=%v", ok, err)
	}
	if got, _ := client.Get(ctx, key); got != "owner-a" {
		t.Fatalf("owner overwritten: %s", got)
	}
}

func TestDelIfValueRespectsOwner(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.LockKey("cron-worker:dev")

	if ok, err := client.SetNX(ctx, key, "owner-a", time.Minute); err != nil || !ok {
		t.Fatalf("setnx: ok=%v err=%v", ok, err)
	}
	if deleted, err := client.DelIfValue(ctx, key, "owner-b"); err != nil || deleted {
		t.Fatalf("foreign owner must not delete: deleted=%v err=%v", deleted, err)
	}
	if deleted, err := client.DelIfValue(ctx, key, "owner-a"); err != nil || !deleted {
		t.Fatalf("owner delete: deleted=%v err=%v", deleted, err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, ErrNil) {
		t.Fatalf("expected key gone, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.LocalStateKey("tab-1", "wanterio_cart"); got != "wt:local:tab-1:wanterio_cart" {
		t.Fatalf("unexpected local key %s", got)
	}
	if got := client.AccessSessionKey("jti-1"); got != "wt:session:jti-1" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.RateLimitKey("sign_in"); got != "wt:rate_limit:sign_in" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.LockKey("cron-worker:dev"); got != "wt:lock:cron-worker:dev" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LocalStateKey("", "wanterio_cart"); got != "wt:local:wanterio_cart" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on uninitialized client should be a no-op: %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", PoolSize: 4, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.PoolSize != 4 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	var n int64
	fmt.Sscan(m.data[key], &n)
	n++
	m.data[key] = fmt.Sprint(n)
	return redis.NewIntResult(n, nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

// Eval understands only the compare-and-delete script.
func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != compareAndDelete {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
	}
	if v, ok := m.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
