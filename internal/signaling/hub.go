// Package signaling implements the Signaling Server: the hub is
// the single goroutine that owns the Room Registry, the pending-join lobby,
// and the rate limiter — every mutation happens on this one goroutine, so
// none of room.Registry or ratelimit.Limiter needs its own lock.
package signaling

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relaybeam/relaybeam/internal/ratelimit"
	"github.com/relaybeam/relaybeam/internal/room"
	"github.com/relaybeam/relaybeam/internal/wire"
)

// inbound pairs a received envelope with the client that sent it.
type inbound struct {
	client   *Client
	envelope wire.Envelope
}

// Options configures a Hub's tunables.
type Options struct {
	MaxPeersPerRoom  int
	RoomTTL          time.Duration
	SweepInterval    time.Duration
	MaxSignalPayload int
	RateWindow       time.Duration
	RateMax          uint32
}

// Hub is the central event loop brokering room lifecycle and signal relay.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan inbound

	registry *room.Registry
	limiter  *ratelimit.Limiter
	guard    *ratelimit.PayloadGuard

	roomTTL       time.Duration
	sweepInterval time.Duration

	clients map[room.PeerHandle]*Client
}

// NewHub creates a Hub with the given options; zero-valued fields in opts
// fall back to the constituent packages' own defaults.
func NewHub(opts Options) *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		Broadcast:     make(chan inbound, 64),
		registry:      room.New(opts.MaxPeersPerRoom),
		limiter:       ratelimit.New(opts.RateWindow, opts.RateMax),
		guard:         ratelimit.NewPayloadGuard(opts.MaxSignalPayload),
		roomTTL:       opts.RoomTTL,
		sweepInterval: opts.SweepInterval,
		clients:       make(map[room.PeerHandle]*Client),
	}
}

// newPeerHandle mints a fresh PeerHandle for a just-registered connection.
func newPeerHandle() room.PeerHandle {
	return room.PeerHandle(uuid.NewString())
}

// Run is the hub's single-goroutine event loop. It never returns.
func (h *Hub) Run() {
	sweepInterval := h.sweepInterval
	if sweepInterval <= 0 {
		sweepInterval = room.DefaultSweepInterval
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.Register:
			client.Handle = newPeerHandle()
			h.clients[client.Handle] = client
			slog.Info("signaling client registered", "peer", client.Handle)

		case client := <-h.Unregister:
			h.handleDisconnect(client)

		case msg := <-h.Broadcast:
			h.dispatch(msg)

		case now := <-ticker.C:
			evicted := h.registry.Sweep(now, h.roomTTL)
			for _, id := range evicted {
				slog.Info("room evicted by TTL sweep", "room", id)
			}
		}
	}
}

func (h *Hub) handleDisconnect(client *Client) {
	slog.Info("signaling client disconnected", "peer", client.Handle)

	if id, ok := h.registry.RoomOf(client.Handle); ok {
		for _, other := range h.registry.Others(id, client.Handle) {
			if oc, ok := h.clients[other]; ok {
				oc.reply(&wire.Envelope{Type: wire.EventAppError, Message: "peer disconnected"})
			}
		}
	}

	h.registry.Leave(client.Handle)
	h.limiter.Forget(string(client.Handle))
	delete(h.clients, client.Handle)
	close(client.Send)
}

func (h *Hub) dispatch(msg inbound) {
	c, env := msg.client, msg.envelope
	now := time.Now()

	switch env.Type {
	case wire.EventCreateRoom:
		h.onCreateRoom(c, env, now)
	case wire.EventJoinRoom:
		h.onJoinRoom(c, env, now)
	case wire.EventRequestJoin:
		h.onRequestJoin(c, env, now)
	case wire.EventPeerAccept:
		h.onPeerAccepted(c, env)
	case wire.EventPeerReject:
		h.onPeerRejected(c, env)
	case wire.EventOffer, wire.EventAnswer:
		h.onRelay(c, env) // exempt from the rate limiter; size-bounded instead
	case wire.EventCandidate:
		if err := h.limiter.Allow(string(c.Handle), now); err != nil {
			c.reply(appError("rate limit exceeded"))
			return
		}
		h.onRelay(c, env)
	default:
		slog.Warn("signaling: unknown event type", "type", env.Type, "peer", c.Handle)
	}
}
