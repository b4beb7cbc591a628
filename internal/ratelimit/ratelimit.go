// Package ratelimit implements the per-peer sliding-window event limiter and
// the max-payload guard. Both reject by returning an error for the caller
// to turn into a single app-error reply; neither ever disconnects the
// offending socket.
package ratelimit

import (
	"errors"
	"time"
)

// Defaults for the event limiter.
const (
	DefaultWindow = 1 * time.Second
	DefaultMax    = 10
)

var ErrRateLimited = errors.New("ratelimit: event rate exceeded")

// state is the per-peer RateState: a count and the window's end time.
type state struct {
	count     uint32
	windowEnd time.Time
}

// Limiter is a fixed-refill-at-boundary sliding window limiter keyed by an
// opaque peer identifier. It is not internally synchronized; like the Room
// Registry, it is owned by the signaling hub's single goroutine.
type Limiter struct {
	Window time.Duration
	Max    uint32

	byPeer map[string]*state
}

// New creates a limiter. window <= 0 and max <= 0 fall back to defaults.
func New(window time.Duration, max uint32) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max == 0 {
		max = DefaultMax
	}
	return &Limiter{
		Window: window,
		Max:    max,
		byPeer: make(map[string]*state),
	}
}

// Allow records one event for peer at time now, returning ErrRateLimited if
// the peer's window is exhausted.
func (l *Limiter) Allow(peer string, now time.Time) error {
	s, ok := l.byPeer[peer]
	if !ok || now.After(s.windowEnd) {
		l.byPeer[peer] = &state{count: 1, windowEnd: now.Add(l.Window)}
		return nil
	}
	if s.count >= l.Max {
		return ErrRateLimited
	}
	s.count++
	return nil
}

// Forget discards any rate state held for peer, called on disconnect.
func (l *Limiter) Forget(peer string) {
	delete(l.byPeer, peer)
}

// MaxSignalPayload is the default max serialized size of a relayed envelope.
const MaxSignalPayload = 65536

// PayloadGuard rejects any payload whose serialized size exceeds a limit.
type PayloadGuard struct {
	MaxBytes int
}

// NewPayloadGuard creates a guard. maxBytes <= 0 uses MaxSignalPayload.
func NewPayloadGuard(maxBytes int) *PayloadGuard {
	if maxBytes <= 0 {
		maxBytes = MaxSignalPayload
	}
	return &PayloadGuard{MaxBytes: maxBytes}
}

var ErrPayloadTooLarge = errors.New("ratelimit: payload exceeds max signal size")

// Check reports ErrPayloadTooLarge if size exceeds the configured maximum.
func (g *PayloadGuard) Check(size int) error {
	if size > g.MaxBytes {
		return ErrPayloadTooLarge
	}
	return nil
}
