package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestSetGetDel_HappyPath(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "k1", []byte(`{"valid":true}`), 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := rc.Set(ctx, "k2", []byte("v2"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	b, ok, err := rc.Get(ctx, "k1")
	if err != nil || !ok || string(b) != `{"valid":true}` {
		t.Fatalf("Get k1: %q ok=%v err=%v", b, ok, err)
	}
	if _, ok, err := rc.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}

	if b, ok, err := rc.Get(ctx, "k2"); err != nil || !ok || string(b) != "v2" {
		t.Fatalf("Get k2: %q ok=%v err=%v", b, ok, err)
	}

	if err := rc.Del(ctx, "k1", "k2", "missing"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := rc.Get(ctx, "k1"); ok {
		t.Fatalf("k1 still present after Del")
	}
}

func TestTTLExpiry(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	if err := rc.Set(ctx, "ttl-key", []byte("v"), 2*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := rc.Get(ctx, "ttl-key"); !ok {
		t.Fatalf("pre expiry miss")
	}
	mr.FastForward(3 * time.Second)
	if _, ok, err := rc.Get(ctx, "ttl-key"); ok || err != nil {
		t.Fatalf("post expiry ok=%v err=%v", ok, err)
	}
}

func TestClosedServer_ReturnsError(t *testing.T) {
	rc, mr := newMini(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, _, err := rc.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error from closed server")
	}
	if err := rc.Ping(ctx); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestNew_RequiresAddr(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc, _ := newMini(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rc.Set(ctx, "k", []byte("v"), time.Minute)
	if err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
