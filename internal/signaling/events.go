package signaling

import (
	"log/slog"
	"time"

	"github.com/relaybeam/relaybeam/internal/room"
	"github.com/relaybeam/relaybeam/internal/wire"
)

// onCreateRoom implements create-room.
func (h *Hub) onCreateRoom(c *Client, env wire.Envelope, now time.Time) {
	if err := h.limiter.Allow(string(c.Handle), now); err != nil {
		c.reply(appError("rate limit exceeded"))
		return
	}

	id := room.ID(env.RoomID)
	if !room.Valid(id) {
		c.reply(appError("invalid room id"))
		return
	}

	if err := h.registry.Create(id, c.Handle, now); err != nil {
		slog.Info("create-room failed", "room", id, "peer", c.Handle, "err", err)
		c.reply(appError("room already exists"))
		return
	}

	slog.Info("room created", "room", id, "peer", c.Handle)
	c.reply(&wire.Envelope{Type: wire.EventRoomCreated, RoomID: string(id)})
}

// onRequestJoin implements request-join (the receiver "lobby").
func (h *Hub) onRequestJoin(c *Client, env wire.Envelope, now time.Time) {
	if err := h.limiter.Allow(string(c.Handle), now); err != nil {
		c.reply(appError("rate limit exceeded"))
		return
	}

	id := room.ID(env.RoomID)
	if !room.Valid(id) {
		c.reply(appError("invalid room id"))
		return
	}

	if _, ok := h.registry.Get(id); !ok {
		c.reply(&wire.Envelope{Type: wire.EventRoomNotFound, RoomID: string(id)})
		return
	}

	if h.registry.IsMember(id, c.Handle) {
		c.reply(&wire.Envelope{Type: wire.EventRoomJoined, RoomID: string(id)})
		return
	}

	h.registry.SetPending(c.Handle, id)
	c.reply(&wire.Envelope{Type: wire.EventJoinRequested, RoomID: string(id)})

	for _, other := range h.registry.Others(id, c.Handle) {
		if oc, ok := h.clients[other]; ok {
			oc.reply(&wire.Envelope{Type: wire.EventPeerJoinRequest, PeerID: string(c.Handle), RoomID: string(id)})
		}
	}
}

// onJoinRoom implements join-room (sender reconnects, or legacy
// direct joins).
func (h *Hub) onJoinRoom(c *Client, env wire.Envelope, now time.Time) {
	if err := h.limiter.Allow(string(c.Handle), now); err != nil {
		c.reply(appError("rate limit exceeded"))
		return
	}

	id := room.ID(env.RoomID)
	if !room.Valid(id) {
		c.reply(appError("invalid room id"))
		return
	}

	if _, ok := h.registry.Get(id); !ok {
		c.reply(&wire.Envelope{Type: wire.EventRoomNotFound, RoomID: string(id)})
		return
	}

	if h.registry.IsMember(id, c.Handle) {
		c.reply(&wire.Envelope{Type: wire.EventRoomJoined, RoomID: string(id)})
		return
	}

	if err := h.registry.Join(id, c.Handle); err != nil {
		c.reply(appError(joinErrorMessage(err)))
		return
	}
	h.registry.ClearPending(c.Handle)

	for _, other := range h.registry.Others(id, c.Handle) {
		if oc, ok := h.clients[other]; ok {
			oc.reply(&wire.Envelope{Type: wire.EventPeerJoined, PeerID: string(c.Handle), RoomID: string(id)})
		}
	}
	c.reply(&wire.Envelope{Type: wire.EventRoomJoined, RoomID: string(id)})
}

// onPeerAccepted implements peer-accepted: only an existing
// member of the room may approve a pending peer, and only into a room with
// capacity.
func (h *Hub) onPeerAccepted(c *Client, env wire.Envelope) {
	id := room.ID(env.RoomID)
	target := room.PeerHandle(env.PeerID)

	if !h.registry.IsMember(id, c.Handle) {
		c.reply(appError("not a member of this room"))
		return
	}

	pending, ok := h.registry.Pending(target)
	if !ok || pending.Room != id {
		c.reply(appError("no such pending join"))
		if tc, ok := h.clients[target]; ok {
			tc.reply(appError("no such pending join"))
		}
		return
	}

	if err := h.registry.Join(id, target); err != nil {
		c.reply(appError(joinErrorMessage(err)))
		if tc, ok := h.clients[target]; ok {
			tc.reply(appError(joinErrorMessage(err)))
		}
		return
	}
	h.registry.ClearPending(target)

	for _, other := range h.registry.Others(id, target) {
		if oc, ok := h.clients[other]; ok {
			oc.reply(&wire.Envelope{Type: wire.EventPeerJoined, PeerID: string(target), RoomID: string(id)})
		}
	}
	if tc, ok := h.clients[target]; ok {
		tc.reply(&wire.Envelope{Type: wire.EventRoomJoined, RoomID: string(id)})
	}
}

// onPeerRejected implements peer-rejected.
func (h *Hub) onPeerRejected(c *Client, env wire.Envelope) {
	id := room.ID(env.RoomID)
	target := room.PeerHandle(env.PeerID)

	if !h.registry.IsMember(id, c.Handle) {
		c.reply(appError("not a member of this room"))
		return
	}

	h.registry.ClearPending(target)
	if tc, ok := h.clients[target]; ok {
		tc.reply(&wire.Envelope{Type: wire.EventPeerReject, PeerID: string(target), RoomID: string(id)})
	}
}

// onRelay implements offer/answer/candidate relay: the guard
// rejects oversized envelopes, membership is checked, and the payload is
// forwarded to every OTHER member with `from` set to the sender.
func (h *Hub) onRelay(c *Client, env wire.Envelope) {
	size, err := env.Size()
	if err != nil || h.guard.Check(size) != nil {
		c.reply(appError("payload too large"))
		return
	}

	id := room.ID(env.RoomID)
	if !h.registry.IsMember(id, c.Handle) {
		c.reply(appError("not a member of this room"))
		return
	}

	env.From = string(c.Handle)
	for _, other := range h.registry.Others(id, c.Handle) {
		if oc, ok := h.clients[other]; ok {
			relayed := env
			oc.reply(&relayed)
		}
	}
}

func joinErrorMessage(err error) string {
	switch err {
	case room.ErrFull:
		return "room is full"
	case room.ErrNotFound:
		return "room not found"
	default:
		return "join failed"
	}
}
