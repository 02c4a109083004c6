package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestLocal_Exclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "user-1")
			if err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			defer unlock()

			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Errorf("expected at most one holder, saw %d", maxSeen.Load())
	}
	if l.Held() != 0 {
		t.Errorf("expected no keys left, got %d", l.Held())
	}
}

func TestLocal_IndependentKeys(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlockA, err := l.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock(a) failed: %v", err)
	}
	defer unlockA()

	unlockB, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock(b) should not wait on a: %v", err)
	}
	unlockB()
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	unlock()
	if l.Held() != 0 {
		t.Errorf("expected no keys left, got %d", l.Held())
	}
}

func TestLocal_UnlockTwice(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("relock failed: %v", err)
	}
	unlock()
}

func TestNop(t *testing.T) {
	var l Locker = Nop{}
	unlock1, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	unlock2, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("second Lock failed: %v", err)
	}
	unlock1()
	unlock2()
}

func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	url := os.Getenv("DOCKET_TEST_REDIS_URL")
	if url == "" {
		t.Skip("DOCKET_TEST_REDIS_URL not set")
	}

	r, err := NewRedis(context.Background(), url, time.Second, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	r.prefix = "docket:test:" + t.Name() + ":"
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedis_Exclusive(t *testing.T) {
	r := newTestRedis(t)

	unlock, err := r.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := r.Lock(ctx, "user-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while held, got %v", err)
	}

	unlock()

	unlock, err = r.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Lock after release failed: %v", err)
	}
	unlock()
}

func TestRedis_Expires(t *testing.T) {
	r := newTestRedis(t)

	if _, err := r.Lock(context.Background(), "stale"); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	unlock, err := r.Lock(ctx, "stale")
	if err != nil {
		t.Fatalf("expected lock after ttl, got %v", err)
	}
	unlock()
}

func TestRedis_UnlockConcurrently(t *testing.T) {
	r := newTestRedis(t)

	unlock1, err := r.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock1()
		}()
	}
	wg.Wait()

	unlock2, err := r.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Lock after release failed: %v", err)
	}
	defer unlock2()

	// A late call to the first unlock must not free the second holder.
	unlock1()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := r.Lock(ctx, "user-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected lock still held, got %v", err)
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not-a-url", 0, nil); err == nil {
		t.Error("expected error for invalid url")
	}
}
