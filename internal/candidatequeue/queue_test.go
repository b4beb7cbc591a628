package candidatequeue

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestDrainReturnsFIFOOrder(t *testing.T) {
	q := New()
	c1 := webrtc.ICECandidateInit{Candidate: "c1"}
	c2 := webrtc.ICECandidateInit{Candidate: "c2"}
	q.Enqueue(c1)
	q.Enqueue(c2)

	if q.Ready() {
		t.Fatal("queue should not be ready before Drain")
	}

	out := q.Drain()
	if len(out) != 2 || out[0].Candidate != "c1" || out[1].Candidate != "c2" {
		t.Fatalf("got %v, want FIFO [c1, c2]", out)
	}
	if !q.Ready() {
		t.Fatal("queue should be ready after Drain")
	}
}

func TestDrainTwiceReturnsNilSecondTime(t *testing.T) {
	q := New()
	q.Enqueue(webrtc.ICECandidateInit{Candidate: "c1"})
	q.Drain()
	if out := q.Drain(); out != nil {
		t.Fatalf("second Drain should return nil, got %v", out)
	}
}

func TestReset(t *testing.T) {
	q := New()
	q.Enqueue(webrtc.ICECandidateInit{Candidate: "c1"})
	q.Drain()
	q.Reset()
	if q.Ready() {
		t.Fatal("Reset should un-ready the queue")
	}
	if q.Len() != 0 {
		t.Fatalf("Reset should clear pending, got len %d", q.Len())
	}
}
