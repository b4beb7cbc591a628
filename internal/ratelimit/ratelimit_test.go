package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	l := New(time.Second, 3)
	now := time.Unix(0, 0)

	for i := 0; i < 3; i++ {
		if err := l.Allow("peerA", now); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}
	if err := l.Allow("peerA", now); err != ErrRateLimited {
		t.Fatalf("4th event: got %v, want ErrRateLimited", err)
	}
}

func TestAllowResetsAtWindowBoundary(t *testing.T) {
	l := New(time.Second, 1)
	now := time.Unix(0, 0)

	if err := l.Allow("peerA", now); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if err := l.Allow("peerA", now.Add(500*time.Millisecond)); err != ErrRateLimited {
		t.Fatalf("second event within window: got %v, want ErrRateLimited", err)
	}
	if err := l.Allow("peerA", now.Add(1500*time.Millisecond)); err != nil {
		t.Fatalf("event after window refill: %v", err)
	}
}

func TestAllowIsolatesPeers(t *testing.T) {
	l := New(time.Second, 1)
	now := time.Unix(0, 0)

	if err := l.Allow("peerA", now); err != nil {
		t.Fatalf("peerA: %v", err)
	}
	if err := l.Allow("peerB", now); err != nil {
		t.Fatalf("peerB should have its own independent window: %v", err)
	}
}

func TestForget(t *testing.T) {
	l := New(time.Second, 1)
	now := time.Unix(0, 0)
	l.Allow("peerA", now)
	l.Forget("peerA")
	if err := l.Allow("peerA", now); err != nil {
		t.Fatalf("after Forget, peer should get a fresh window: %v", err)
	}
}

func TestPayloadGuard(t *testing.T) {
	g := NewPayloadGuard(100)
	if err := g.Check(100); err != nil {
		t.Fatalf("exactly at the limit should pass: %v", err)
	}
	if err := g.Check(101); err != ErrPayloadTooLarge {
		t.Fatalf("over the limit: got %v, want ErrPayloadTooLarge", err)
	}
}
