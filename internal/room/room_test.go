package room

import (
	"testing"
	"time"
)

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"abc-DEF_123":                              true,
		"":                                         false,
		"has a space":                               false,
		"has/slash":                                false,
		string(make([]byte, 65)):                   false,
	}
	for id, want := range cases {
		if got := Valid(ID(id)); got != want {
			t.Errorf("Valid(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestCreateNotIdempotent(t *testing.T) {
	reg := New(2)
	now := time.Now()
	if err := reg.Create("room1", "peerA", now); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := reg.Create("room1", "peerB", now); err != ErrExists {
		t.Fatalf("second create: got %v, want ErrExists", err)
	}
}

func TestJoinFullRoom(t *testing.T) {
	reg := New(2)
	now := time.Now()
	reg.Create("room1", "A", now)
	if err := reg.Join("room1", "B"); err != nil {
		t.Fatalf("join B: %v", err)
	}
	if err := reg.Join("room1", "C"); err != ErrFull {
		t.Fatalf("join C: got %v, want ErrFull", err)
	}
	if len(reg.Others("room1", "A")) != 1 {
		t.Fatalf("room1 should still have exactly 2 members")
	}
}

func TestJoinMissingRoom(t *testing.T) {
	reg := New(2)
	if err := reg.Join("ghost", "A"); err != ErrNotFound {
		t.Fatalf("join ghost: got %v, want ErrNotFound", err)
	}
}

func TestJoinIdempotentForExistingMember(t *testing.T) {
	reg := New(2)
	now := time.Now()
	reg.Create("room1", "A", now)
	if err := reg.Join("room1", "A"); err != nil {
		t.Fatalf("re-join by existing member should be a no-op: %v", err)
	}
	if len(reg.Others("room1", "B")) != 1 {
		t.Fatalf("room should still have exactly one member (A)")
	}
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	reg := New(2)
	now := time.Now()
	reg.Create("room1", "A", now)
	reg.Leave("A")
	if _, ok := reg.Get("room1"); ok {
		t.Fatal("room1 should be deleted once its last peer leaves")
	}
}

func TestLeaveKeepsRoomForRemainingPeer(t *testing.T) {
	reg := New(2)
	now := time.Now()
	reg.Create("room1", "A", now)
	reg.Join("room1", "B")
	reg.Leave("A")

	room, ok := reg.Get("room1")
	if !ok {
		t.Fatal("room1 should survive with B still in it")
	}
	if _, ok := room.Peers["A"]; ok {
		t.Fatal("A should no longer be a member")
	}
	if _, ok := room.Peers["B"]; !ok {
		t.Fatal("B should still be a member")
	}
}

func TestSweepEvictsOldRooms(t *testing.T) {
	reg := New(2)
	old := time.Now().Add(-time.Hour)
	reg.Create("stale", "A", old)
	reg.Create("fresh", "B", time.Now())

	evicted := reg.Sweep(time.Now(), 30*time.Minute)
	if len(evicted) != 1 || evicted[0] != "stale" {
		t.Fatalf("Sweep evicted %v, want [stale]", evicted)
	}
	if _, ok := reg.Get("fresh"); !ok {
		t.Fatal("fresh room should survive the sweep")
	}
}

func TestPendingJoinLifecycle(t *testing.T) {
	reg := New(2)
	reg.SetPending("B", "room1")

	p, ok := reg.Pending("B")
	if !ok || p.Room != "room1" {
		t.Fatalf("Pending(B) = %v, %v", p, ok)
	}

	reg.Leave("B")
	if _, ok := reg.Pending("B"); ok {
		t.Fatal("pending join should be cleared on disconnect")
	}
}
