package signalclient

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/relaybeam/relaybeam/internal/wire"
)

// PeerEvent carries the peerId/roomId pair common to several server events.
type PeerEvent struct {
	PeerID string
	RoomID string
}

// Handler decodes Envelopes from a Client into typed channels the session
// orchestrator selects on, and implements peerconn.Signaler so the peer
// connection controller can emit offers/answers/candidates without
// reaching into the transport directly.
type Handler struct {
	client *Client

	RoomCreated   chan string
	RoomJoined    chan string
	RoomNotFound  chan string
	JoinRequested chan string
	PeerJoinReq   chan PeerEvent
	PeerJoined    chan PeerEvent
	AppError      chan string
	Offer         chan offerMsg
	Answer        chan answerMsg
	Candidate     chan candidateMsg
}

type offerMsg struct {
	From  string
	Offer webrtc.SessionDescription
}

type answerMsg struct {
	From   string
	Answer webrtc.SessionDescription
}

type candidateMsg struct {
	From      string
	Candidate json.RawMessage
}

// NewHandler wraps client, ready to Start routing once Client.Connect has
// been called.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:        client,
		RoomCreated:   make(chan string, 1),
		RoomJoined:    make(chan string, 1),
		RoomNotFound:  make(chan string, 1),
		JoinRequested: make(chan string, 1),
		PeerJoinReq:   make(chan PeerEvent, 1),
		PeerJoined:    make(chan PeerEvent, 1),
		AppError:      make(chan string, 4),
		Offer:         make(chan offerMsg, 1),
		Answer:        make(chan answerMsg, 1),
		Candidate:     make(chan candidateMsg, 32),
	}
}

// Start consumes client.Incoming until the channel closes, dispatching each
// envelope by its Type. Run it in its own goroutine.
func (h *Handler) Start() {
	for env := range h.client.Incoming {
		switch env.Type {
		case wire.EventRoomCreated:
			h.RoomCreated <- env.RoomID
		case wire.EventRoomJoined:
			h.RoomJoined <- env.RoomID
		case wire.EventRoomNotFound:
			h.RoomNotFound <- env.RoomID
		case wire.EventJoinRequested:
			h.JoinRequested <- env.RoomID
		case wire.EventPeerJoinRequest:
			h.PeerJoinReq <- PeerEvent{PeerID: env.PeerID, RoomID: env.RoomID}
		case wire.EventPeerJoined:
			h.PeerJoined <- PeerEvent{PeerID: env.PeerID, RoomID: env.RoomID}
		case wire.EventAppError:
			h.AppError <- env.Message
		case wire.EventOffer:
			var offer webrtc.SessionDescription
			if err := json.Unmarshal(env.Offer, &offer); err != nil {
				h.AppError <- fmt.Sprintf("malformed offer: %v", err)
				continue
			}
			h.Offer <- offerMsg{From: env.From, Offer: offer}
		case wire.EventAnswer:
			var answer webrtc.SessionDescription
			if err := json.Unmarshal(env.Answer, &answer); err != nil {
				h.AppError <- fmt.Sprintf("malformed answer: %v", err)
				continue
			}
			h.Answer <- answerMsg{From: env.From, Answer: answer}
		case wire.EventCandidate:
			h.Candidate <- candidateMsg{From: env.From, Candidate: env.Candidate}
		}
	}
}

// CreateRoom, RequestJoin, JoinRoom, Accept, and Reject send the
// client->server requests.

func (h *Handler) CreateRoom(room string) {
	h.client.Send(&wire.Envelope{Type: wire.EventCreateRoom, RoomID: room})
}

func (h *Handler) RequestJoin(room string) {
	h.client.Send(&wire.Envelope{Type: wire.EventRequestJoin, RoomID: room})
}

func (h *Handler) JoinRoom(room string) {
	h.client.Send(&wire.Envelope{Type: wire.EventJoinRoom, RoomID: room})
}

func (h *Handler) Accept(room, peer string) {
	h.client.Send(&wire.Envelope{Type: wire.EventPeerAccept, RoomID: room, PeerID: peer})
}

func (h *Handler) Reject(room, peer string) {
	h.client.Send(&wire.Envelope{Type: wire.EventPeerReject, RoomID: room, PeerID: peer})
}

// SendOffer, SendAnswer, and SendCandidate implement peerconn.Signaler.

func (h *Handler) SendOffer(room string, offer webrtc.SessionDescription) error {
	raw, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	h.client.Send(&wire.Envelope{Type: wire.EventOffer, RoomID: room, Offer: raw})
	return nil
}

func (h *Handler) SendAnswer(room string, answer webrtc.SessionDescription) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	h.client.Send(&wire.Envelope{Type: wire.EventAnswer, RoomID: room, Answer: raw})
	return nil
}

func (h *Handler) SendCandidate(room string, candidate webrtc.ICECandidateInit) error {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return err
	}
	h.client.Send(&wire.Envelope{Type: wire.EventCandidate, RoomID: room, Candidate: raw})
	return nil
}
