// Package peerconn is the peer connection controller: a pion wrapper around
// an explicit Idle→Negotiating→Connected→Disconnected→{Recovering|Closed}
// state machine, including peer-vanished sender-side recovery and the
// candidate-queue drain on negotiation.
package peerconn

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/relaybeam/relaybeam/internal/candidatequeue"
	"github.com/relaybeam/relaybeam/internal/transfererr"
)

// State is a transport lifecycle state.
type State int

const (
	Idle State = iota
	Negotiating
	Connected
	Disconnected
	Recovering
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Negotiating:
		return "negotiating"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Recovering:
		return "recovering"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Defaults for values callers leave zero in Config.
const (
	DefaultLowWater       = 262144
	DefaultOpenTimeout    = 30 * time.Second
	DisconnectGracePeriod = 4 * time.Second
	RestartDelay          = 250 * time.Millisecond
)

// Config configures a Controller.
type Config struct {
	ICEServers     []webrtc.ICEServer
	ForceRelay     bool
	LowWaterMark   uint64
	OpenTimeout    time.Duration
	DisconnectWait time.Duration
	RestartWait    time.Duration
}

// Signaler is the minimal signaling surface the controller needs to emit
// offer/answer/candidate events; internal/signalclient implements it.
type Signaler interface {
	SendOffer(room string, offer webrtc.SessionDescription) error
	SendAnswer(room string, answer webrtc.SessionDescription) error
	SendCandidate(room string, candidate webrtc.ICECandidateInit) error
}

// Controller drives a single peer connection for a single room membership.
// It is not safe for concurrent use from multiple goroutines beyond the
// pion callback goroutines it installs itself; callers serialize access to
// Setup/Close/CreateOffer through a single owning goroutine (the session
// orchestrator), matching single-threaded event-loop model.
type Controller struct {
	cfg      Config
	signaler Signaler

	mu    sync.Mutex
	state State
	room  string

	pc      *webrtc.PeerConnection
	channel *webrtc.DataChannel
	queue   *candidatequeue.Queue

	initiator        bool
	everConnected    bool
	transferComplete bool
	intentionalClose bool
	restartingPeer   bool

	disconnectTimer *time.Timer
	restartTimer    *time.Timer
	openTimer       *time.Timer
	channelOpened   bool

	// OnStateChange is invoked (off the pion callback goroutine's lock)
	// whenever the controller transitions state.
	OnStateChange func(State)
	// OnChannelOpen is invoked once the data channel reaches the open
	// state, for either role.
	OnChannelOpen func(*webrtc.DataChannel)
	// OnChannelMessage forwards every inbound data channel message.
	OnChannelMessage func(webrtc.DataChannelMessage)
	// OnFailure reports a terminal negotiation/transport failure that
	// isn't suppressed by peer-vanished recovery.
	OnFailure func(error)
	// Restart is called by the controller to re-run setup for the same
	// room after a peer-vanished reset. The session
	// orchestrator supplies this since it alone knows the pending file.
	Restart func(room string)
}

// New creates an idle controller. cfg zero-values fall back to spec
// defaults.
func New(cfg Config, signaler Signaler) *Controller {
	if cfg.LowWaterMark == 0 {
		cfg.LowWaterMark = DefaultLowWater
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.DisconnectWait == 0 {
		cfg.DisconnectWait = DisconnectGracePeriod
	}
	if cfg.RestartWait == 0 {
		cfg.RestartWait = RestartDelay
	}
	return &Controller{
		cfg:      cfg,
		signaler: signaler,
		state:    Idle,
		queue:    candidatequeue.New(),
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	cb := c.OnStateChange
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// Setup installs a fresh peer connection for room, in the given role
// (initiator == sender). This is the Idle/Recovering → Negotiating
// transition
func (c *Controller) Setup(room string, initiator bool) error {
	c.mu.Lock()
	c.room = room
	c.initiator = initiator
	c.intentionalClose = false
	c.channelOpened = false
	c.queue.Reset()
	c.mu.Unlock()

	policy := webrtc.ICETransportPolicyAll
	if c.cfg.ForceRelay {
		policy = webrtc.ICETransportPolicyRelay
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:         c.cfg.ICEServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pc = pc
	c.mu.Unlock()

	c.installConnectionHandlers(pc)

	if initiator {
		ordered := true
		dc, err := pc.CreateDataChannel("relaybeam", &webrtc.DataChannelInit{Ordered: &ordered})
		if err != nil {
			return err
		}
		c.installChannelHandlers(dc)
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			c.installChannelHandlers(dc)
		})
	}

	pc.OnICECandidate(func(ice *webrtc.ICECandidate) {
		if ice == nil {
			return
		}
		if err := c.signaler.SendCandidate(room, ice.ToJSON()); err != nil {
			slog.Warn("send candidate failed", "err", err)
		}
	})

	c.setState(Negotiating)
	c.armOpenTimer()
	return nil
}

// armOpenTimer starts (or restarts) the data-channel open deadline. For the
// initiator, Setup runs once a remote peer has been observed joining the
// room, and from the peer-vanished restart; the restart disarms the timer
// again after re-running Setup (see maybeRecoverFromVanish), so a sender
// still waiting for a peer has no open timer that can fire.
func (c *Controller) armOpenTimer() {
	c.mu.Lock()
	if c.openTimer != nil {
		c.openTimer.Stop()
	}
	room := c.room
	c.openTimer = time.AfterFunc(c.cfg.OpenTimeout, func() {
		c.onOpenTimeout(room)
	})
	c.mu.Unlock()
}

func (c *Controller) onOpenTimeout(room string) {
	c.mu.Lock()
	if c.channelOpened || c.intentionalClose {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	if cb := c.OnFailure; cb != nil {
		cb(openTimedOut(room))
	}
}

func (c *Controller) installConnectionHandlers(pc *webrtc.PeerConnection) {
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			c.onConnected()
		case webrtc.PeerConnectionStateDisconnected:
			c.onDisconnected()
		case webrtc.PeerConnectionStateFailed:
			c.onFailed()
		}
	})
}

func (c *Controller) installChannelHandlers(dc *webrtc.DataChannel) {
	dc.SetBufferedAmountLowThreshold(c.cfg.LowWaterMark)

	c.mu.Lock()
	c.channel = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		c.mu.Lock()
		c.channelOpened = true
		if c.openTimer != nil {
			c.openTimer.Stop()
		}
		c.mu.Unlock()
		if cb := c.OnChannelOpen; cb != nil {
			cb(dc)
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if cb := c.OnChannelMessage; cb != nil {
			cb(msg)
		}
	})
	dc.OnClose(func() {
		c.maybeRecoverFromVanish()
	})
}

func (c *Controller) onConnected() {
	c.mu.Lock()
	if c.disconnectTimer != nil {
		c.disconnectTimer.Stop()
		c.disconnectTimer = nil
	}
	c.everConnected = true
	c.mu.Unlock()
	c.setState(Connected)
}

func (c *Controller) onDisconnected() {
	c.mu.Lock()
	if c.intentionalClose || c.transferComplete {
		c.mu.Unlock()
		return
	}
	room := c.room
	c.disconnectTimer = time.AfterFunc(c.cfg.DisconnectWait, func() {
		c.mu.Lock()
		stillDisconnected := c.state == Disconnected
		c.mu.Unlock()
		if stillDisconnected {
			if cb := c.OnFailure; cb != nil {
				cb(disconnectedTooLong(room))
			}
		}
	})
	c.mu.Unlock()
	c.setState(Disconnected)
}

func (c *Controller) onFailed() {
	c.maybeRecoverFromVanish()
}

// maybeRecoverFromVanish implements: sender-only auto-restart
// on peer vanish, guarded against re-entry and suppressed once the transfer
// has completed.
func (c *Controller) maybeRecoverFromVanish() {
	c.mu.Lock()
	eligible := c.initiator && c.everConnected && !c.transferComplete && !c.restartingPeer
	if !eligible {
		c.mu.Unlock()
		return
	}
	c.restartingPeer = true
	room := c.room
	c.mu.Unlock()

	c.setState(Recovering)

	c.mu.Lock()
	c.restartTimer = time.AfterFunc(c.cfg.RestartWait, func() {
		c.resetConnection()
		if cb := c.Restart; cb != nil {
			cb(room)
		}
		c.mu.Lock()
		c.restartingPeer = false
		// No peer has joined the fresh connection yet.
		if c.openTimer != nil {
			c.openTimer.Stop()
		}
		c.mu.Unlock()
	})
	c.mu.Unlock()
}

// resetConnection unhooks every callback before closing, so the teardown
// itself never trips onDisconnected/onFailed again.
func (c *Controller) resetConnection() {
	c.mu.Lock()
	pc := c.pc
	dc := c.channel
	c.pc = nil
	c.channel = nil
	if c.openTimer != nil {
		c.openTimer.Stop()
	}
	c.mu.Unlock()

	if dc != nil {
		dc.OnOpen(func() {})
		dc.OnClose(func() {})
		dc.OnMessage(func(webrtc.DataChannelMessage) {})
		dc.Close()
	}
	if pc != nil {
		pc.OnConnectionStateChange(func(webrtc.PeerConnectionState) {})
		pc.OnICECandidate(func(*webrtc.ICECandidate) {})
		pc.Close()
	}
	c.queue.Reset()
}

// Close marks the close intentional and tears the connection down,
// transitioning from any state directly to Closed.
func (c *Controller) Close() {
	c.mu.Lock()
	c.intentionalClose = true
	if c.disconnectTimer != nil {
		c.disconnectTimer.Stop()
	}
	if c.restartTimer != nil {
		c.restartTimer.Stop()
	}
	c.mu.Unlock()
	c.resetConnection()
	c.setState(Closed)
}

// MarkTransferComplete suppresses further disconnect/vanish handling once
// the transfer has finished.
func (c *Controller) MarkTransferComplete() {
	c.mu.Lock()
	c.transferComplete = true
	c.mu.Unlock()
}

// Channel returns the active data channel, if any.
func (c *Controller) Channel() *webrtc.DataChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// CreateOffer implements the initiator negotiation path
func (c *Controller) CreateOffer() error {
	c.mu.Lock()
	pc := c.pc
	room := c.room
	c.mu.Unlock()

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return err
	}
	return c.signaler.SendOffer(room, *pc.LocalDescription())
}

// HandleOffer implements the responder negotiation path: set remote
// description, drain the queued candidates, create answer, set local
// description, emit answer.
func (c *Controller) HandleOffer(offer webrtc.SessionDescription) error {
	c.mu.Lock()
	pc := c.pc
	room := c.room
	c.mu.Unlock()

	if err := pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	c.drainQueue(pc)

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return err
	}
	return c.signaler.SendAnswer(room, *pc.LocalDescription())
}

// HandleAnswer applies a received answer and drains the queued candidates.
func (c *Controller) HandleAnswer(answer webrtc.SessionDescription) error {
	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()

	if err := pc.SetRemoteDescription(answer); err != nil {
		return err
	}
	c.drainQueue(pc)
	return nil
}

// HandleCandidate either queues the candidate (remote description not yet
// set) or applies it directly.
func (c *Controller) HandleCandidate(raw json.RawMessage) error {
	var ice webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &ice); err != nil {
		slog.Warn("invalid ICE candidate, ignoring", "err", err)
		return nil
	}

	c.mu.Lock()
	pc := c.pc
	ready := c.queue.Ready()
	c.mu.Unlock()

	if !ready {
		c.queue.Enqueue(ice)
		return nil
	}
	if err := pc.AddICECandidate(ice); err != nil {
		slog.Warn("add ICE candidate failed, ignoring", "err", err)
	}
	return nil
}

func (c *Controller) drainQueue(pc *webrtc.PeerConnection) {
	for _, ice := range c.queue.Drain() {
		if err := pc.AddICECandidate(ice); err != nil {
			slog.Warn("add queued ICE candidate failed, ignoring", "err", err)
		}
	}
}

func disconnectedTooLong(room string) error {
	return &peerOfflineError{room: room}
}

type peerOfflineError struct{ room string }

func (e *peerOfflineError) Error() string { return "peer went offline" }

func openTimedOut(room string) error {
	return fmt.Errorf("room %s: %w", room, transfererr.ErrChannelOpenTimeout)
}
