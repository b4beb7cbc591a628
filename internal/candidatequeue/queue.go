// Package candidatequeue is a FIFO buffer for ICE candidates that arrive
// before the remote description has been set. Pion rejects AddICECandidate
// before SetRemoteDescription succeeds, so early candidates must be held
// and drained in arrival order once negotiation catches up.
package candidatequeue

import "github.com/pion/webrtc/v4"

// Queue buffers ICECandidateInit values until the caller decides the remote
// description is set and drains them.
type Queue struct {
	pending []webrtc.ICECandidateInit
	drained bool
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends a candidate. Callers must check Ready first — once the
// queue has been drained, new candidates are meant to be applied directly
// rather than enqueued here.
func (q *Queue) Enqueue(c webrtc.ICECandidateInit) {
	q.pending = append(q.pending, c)
}

// Ready reports whether the remote description has been set and further
// candidates should be applied immediately rather than queued.
func (q *Queue) Ready() bool {
	return q.drained
}

// Drain marks the queue ready and returns every buffered candidate in FIFO
// arrival order, clearing the buffer. Safe to call once; subsequent calls
// return nil.
func (q *Queue) Drain() []webrtc.ICECandidateInit {
	if q.drained {
		return nil
	}
	q.drained = true
	out := q.pending
	q.pending = nil
	return out
}

// Reset clears the queue back to its initial pre-negotiation state, used
// when the peer connection controller tears down and re-creates the peer
// connection for the same room.
func (q *Queue) Reset() {
	q.pending = nil
	q.drained = false
}

// Len reports the number of candidates currently buffered.
func (q *Queue) Len() int {
	return len(q.pending)
}
