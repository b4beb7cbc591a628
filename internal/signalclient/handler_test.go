package signalclient

import (
	"testing"
	"time"

	"github.com/relaybeam/relaybeam/internal/wire"
)

func TestHandlerDispatchesRoomCreated(t *testing.T) {
	c := NewClient("ws://unused")
	h := NewHandler(c)
	go h.Start()

	c.Incoming <- &wire.Envelope{Type: wire.EventRoomCreated, RoomID: "abcd-1234"}

	select {
	case room := <-h.RoomCreated:
		if room != "abcd-1234" {
			t.Fatalf("room = %q", room)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for RoomCreated")
	}
}

func TestHandlerDispatchesPeerJoined(t *testing.T) {
	c := NewClient("ws://unused")
	h := NewHandler(c)
	go h.Start()

	c.Incoming <- &wire.Envelope{Type: wire.EventPeerJoined, PeerID: "p1", RoomID: "r1"}

	select {
	case ev := <-h.PeerJoined:
		if ev.PeerID != "p1" || ev.RoomID != "r1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for PeerJoined")
	}
}

func TestHandlerDispatchesMalformedOfferAsAppError(t *testing.T) {
	c := NewClient("ws://unused")
	h := NewHandler(c)
	go h.Start()

	c.Incoming <- &wire.Envelope{Type: wire.EventOffer, Offer: []byte(`not-json`)}

	select {
	case msg := <-h.AppError:
		if msg == "" {
			t.Fatal("expected a non-empty error message")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for AppError")
	}
}
