// Package session is the session orchestrator: it wires the signaling
// client's events into the peer connection controller and the send/receive
// pipelines, drives room identity and the sender's delayed offer creation,
// and reports every lifecycle step through the Presenter port.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/relaybeam/relaybeam/internal/crc32frame"
	"github.com/relaybeam/relaybeam/internal/files"
	"github.com/relaybeam/relaybeam/internal/peerconn"
	"github.com/relaybeam/relaybeam/internal/presenter"
	"github.com/relaybeam/relaybeam/internal/progress"
	"github.com/relaybeam/relaybeam/internal/signalclient"
	"github.com/relaybeam/relaybeam/internal/transfer"
	"github.com/relaybeam/relaybeam/internal/transfererr"
	"github.com/relaybeam/relaybeam/internal/utils"
	"github.com/relaybeam/relaybeam/internal/version"
	"github.com/relaybeam/relaybeam/internal/wire"
)

// offerDelay is the ~600ms pause before the sender creates its offer after
// peer-joined, giving the receiver time to install its own peer connection
// following room-joined.
const offerDelay = 600 * time.Millisecond

// Role distinguishes the two sides of a transfer.
type Role int

const (
	Sender Role = iota
	Receiver
)

// Config bundles everything the orchestrator needs that isn't produced at
// runtime: the ICE servers to hand the peer connection controller, the base
// chunk size, an optional download directory for the receiver, and the
// Presenter to drive.
type Config struct {
	ICEServers    []webrtc.ICEServer
	ForceRelay    bool
	BaseChunkSize int
	DownloadDir   string
	Presenter     presenter.Presenter
}

// Session coordinates one sender or receiver run for a single room.
type Session struct {
	cfg    Config
	client *signalclient.Client
	hdl    *signalclient.Handler
	pc     *peerconn.Controller

	role Role
	room string

	file            *files.FileInfo // sender only
	lastJoinedPeer  string
	offerCreatedFor string
	intentional     bool

	resultCh chan error
	recvMsgs chan webrtc.DataChannelMessage
	pcClosed chan struct{}
}

// New constructs a Session bound to serverURL, not yet connected.
func New(cfg Config, serverURL string) *Session {
	client := signalclient.NewClient(serverURL)
	hdl := signalclient.NewHandler(client)

	s := &Session{
		cfg:      cfg,
		client:   client,
		hdl:      hdl,
		resultCh: make(chan error, 1),
		recvMsgs: make(chan webrtc.DataChannelMessage, 64),
		pcClosed: make(chan struct{}),
	}

	s.pc = peerconn.New(peerconn.Config{
		ICEServers: cfg.ICEServers,
		ForceRelay: cfg.ForceRelay,
	}, hdl)
	s.pc.OnStateChange = s.onPeerConnState
	s.pc.OnChannelOpen = s.onChannelOpen
	s.pc.OnChannelMessage = s.onChannelMessage
	s.pc.OnFailure = s.onPeerConnFailure
	s.pc.Restart = s.onVanishRestart

	client.OnError = func(err error) {
		slog.Warn("signaling transport error", "err", err)
	}
	return s
}

// connect dials the signaling server and starts the event-routing
// goroutines. Call once before Send/Receive.
func (s *Session) connect() error {
	if err := s.client.Connect(); err != nil {
		return transfererr.New("connect signaling", transfererr.Negotiation, err)
	}
	go s.hdl.Start()
	go s.watchReconnect()
	return nil
}

// Send runs the sender path for a single local file. It blocks until the
// transfer completes, fails, or the session is closed.
func (s *Session) Send(path string) error {
	infos, err := files.ValidateFiles([]string{path})
	if err != nil {
		return transfererr.New("validate file", transfererr.Validation, err)
	}
	f := infos[0]
	s.file = &f
	s.role = Sender

	if err := s.connect(); err != nil {
		return err
	}

	room, err := newRoomID()
	if err != nil {
		return transfererr.New("generate room id", transfererr.Validation, err)
	}
	s.room = room

	s.cfg.Presenter.Status("Creating room...")
	s.hdl.CreateRoom(room)

	done := make(chan error, 1)
	go s.senderEventLoop(done)
	return <-done
}

// Receive runs the receiver path for the given room id. It blocks until the
// transfer completes, fails, or the session is closed.
func (s *Session) Receive(room string) error {
	s.room = room
	s.role = Receiver

	if err := s.connect(); err != nil {
		return err
	}

	s.cfg.Presenter.Status("Requesting to join...")
	s.hdl.RequestJoin(room)

	done := make(chan error, 1)
	go s.receiverEventLoop(done)
	return <-done
}

// Close marks the session's close intentional and tears everything down,
// the equivalent of the browser's beforeunload cleanup.
func (s *Session) Close() {
	s.intentional = true
	s.pc.Close()
	s.client.Close()
}

func newRoomID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// watchReconnect re-asserts room membership whenever the transport
// reconnects.
func (s *Session) watchReconnect() {
	for range s.client.Reconnected {
		if s.room == "" {
			continue
		}
		if s.role == Sender {
			s.hdl.JoinRoom(s.room)
		} else {
			s.hdl.RequestJoin(s.room)
		}
	}
}

func (s *Session) senderEventLoop(done chan<- error) {
	for {
		select {
		case room := <-s.hdl.RoomCreated:
			s.room = room
			s.cfg.Presenter.ShareLink(fmt.Sprintf("/?room=%s", room))
			s.cfg.Presenter.Status("Waiting for a peer to join...")

		case ev := <-s.hdl.PeerJoinReq:
			accept := s.cfg.Presenter.AwaitApproval(ev.PeerID)
			if accept {
				s.hdl.Accept(ev.RoomID, ev.PeerID)
			} else {
				s.hdl.Reject(ev.RoomID, ev.PeerID)
			}

		case ev := <-s.hdl.PeerJoined:
			s.handlePeerJoined(ev)

		case room := <-s.hdl.RoomNotFound:
			// Sender reconnect raced a dropped room: join-room
			// found nothing, so recreate it under the same id.
			if room == s.room {
				s.hdl.CreateRoom(room)
			}

		case answerMsg := <-s.hdl.Answer:
			if err := s.pc.HandleAnswer(answerMsg.Answer); err != nil {
				done <- transfererr.New("apply answer", transfererr.Negotiation, err)
				return
			}

		case cand := <-s.hdl.Candidate:
			if err := s.pc.HandleCandidate(cand.Candidate); err != nil {
				slog.Warn("candidate rejected", "err", err)
			}

		case msg := <-s.hdl.AppError:
			if !s.intentional {
				s.cfg.Presenter.Error(fmt.Errorf("%s", msg))
			}

		case result := <-s.transferResult():
			done <- result
			return
		}
	}
}

func (s *Session) receiverEventLoop(done chan<- error) {
	for {
		select {
		case <-s.hdl.RoomJoined:
			s.cfg.Presenter.Status("Joined room, waiting for connection...")

		case <-s.hdl.JoinRequested:
			s.cfg.Presenter.Status("Waiting for sender's approval...")

		case room := <-s.hdl.RoomNotFound:
			done <- transfererr.Wrap("join room", transfererr.Validation, transfererr.ErrRoomNotFound, room)
			return

		case offerMsg := <-s.hdl.Offer:
			if s.pc.State() == peerconn.Idle {
				if err := s.pc.Setup(s.room, false); err != nil {
					done <- transfererr.New("setup peer connection", transfererr.Negotiation, err)
					return
				}
			}
			if err := s.pc.HandleOffer(offerMsg.Offer); err != nil {
				done <- transfererr.New("handle offer", transfererr.Negotiation, err)
				return
			}

		case cand := <-s.hdl.Candidate:
			if err := s.pc.HandleCandidate(cand.Candidate); err != nil {
				slog.Warn("candidate rejected", "err", err)
			}

		case msg := <-s.hdl.AppError:
			if !s.intentional {
				s.cfg.Presenter.Error(fmt.Errorf("%s", msg))
			}

		case result := <-s.transferResult():
			done <- result
			return
		}
	}
}

// handlePeerJoined implements sender offer-creation timing:
// clear the guard for a genuinely new peer, then schedule CreateOffer on the
// peer connection controller after offerDelay, guarded against duplicate
// offers for the same room.
func (s *Session) handlePeerJoined(ev signalclient.PeerEvent) {
	if ev.PeerID != s.lastJoinedPeer {
		s.lastJoinedPeer = ev.PeerID
		s.offerCreatedFor = ""
	}
	if s.offerCreatedFor == s.room {
		return
	}

	if s.pc.State() == peerconn.Idle || s.pc.State() == peerconn.Closed {
		if err := s.pc.Setup(s.room, true); err != nil {
			s.cfg.Presenter.Error(transfererr.New("setup peer connection", transfererr.Negotiation, err))
			return
		}
	}

	room := s.room
	s.offerCreatedFor = room
	time.AfterFunc(offerDelay, func() {
		if room != s.room {
			return
		}
		if err := s.pc.CreateOffer(); err != nil {
			s.cfg.Presenter.Error(transfererr.New("create offer", transfererr.Negotiation, err))
		}
	})
}

func (s *Session) onVanishRestart(room string) {
	if s.role != Sender {
		return
	}
	s.offerCreatedFor = ""
	if err := s.pc.Setup(room, true); err != nil {
		s.cfg.Presenter.Error(transfererr.New("restart peer connection", transfererr.Negotiation, err))
		return
	}
	s.cfg.Presenter.Status("Peer connection dropped, retrying...")
	time.AfterFunc(offerDelay, func() {
		if err := s.pc.CreateOffer(); err != nil {
			s.cfg.Presenter.Error(transfererr.New("create offer", transfererr.Negotiation, err))
		}
	})
}

func (s *Session) onPeerConnState(st peerconn.State) {
	switch st {
	case peerconn.Negotiating:
		s.cfg.Presenter.Status("Negotiating connection...")
	case peerconn.Connected:
		s.cfg.Presenter.Status("Connected")
	case peerconn.Disconnected:
		s.cfg.Presenter.Status("Connection interrupted, waiting to recover...")
	case peerconn.Recovering:
		s.cfg.Presenter.Status("Peer went offline, retrying...")
	case peerconn.Closed:
		s.closePcClosed()
	}
}

func (s *Session) onPeerConnFailure(err error) {
	s.closePcClosed()
	if s.intentional {
		return
	}
	s.cfg.Presenter.Error(transfererr.New("peer connection", transfererr.Transport, err))
}

func (s *Session) closePcClosed() {
	select {
	case <-s.pcClosed:
	default:
		close(s.pcClosed)
	}
}

// onChannelOpen starts the transfer pipeline once the data channel opens,
// exchanging the additive DeviceInfo message before the real transfer
// begins.
func (s *Session) onChannelOpen(dc *webrtc.DataChannel) {
	info := wire.DeviceInfo{Type: wire.DeviceInfoType, Name: "relaybeam", Version: version.Version}
	if raw, err := json.Marshal(info); err == nil {
		_ = dc.SendText(string(raw))
	}

	go func() {
		var err error
		if s.role == Sender {
			err = s.runSend(dc)
		} else {
			err = s.runReceive(dc)
		}
		s.transferDone(err)
	}()
}

// onChannelMessage forwards every inbound data channel message into the
// receive pipeline's own queue, independent of peerconn's internal OnClose
// hook so the vanish-recovery wiring stays intact.
func (s *Session) onChannelMessage(msg webrtc.DataChannelMessage) {
	select {
	case s.recvMsgs <- msg:
	case <-s.pcClosed:
	}
}

// transferResult exposes the one-shot channel the background transfer
// goroutine reports its outcome on.
func (s *Session) transferResult() <-chan error {
	return s.resultCh
}

func (s *Session) transferDone(err error) {
	s.pc.MarkTransferComplete()
	select {
	case s.resultCh <- err:
	default:
	}
}

func (s *Session) runSend(dc *webrtc.DataChannel) error {
	f, err := os.Open(s.file.Path)
	if err != nil {
		return transfererr.NewFile("open file", s.file.Name, transfererr.StreamingIO, err)
	}
	defer f.Close()

	sender, err := transfer.NewSender(dc, s.cfg.BaseChunkSize)
	if err != nil {
		return err
	}
	if err := sender.SendMetadata(s.file.Name, uint64(s.file.Size), s.file.Type, time.Now().Unix()); err != nil {
		return err
	}

	start := time.Now()
	err = sender.Run(f, uint64(s.file.Size), func(r progress.Report) {
		s.cfg.Presenter.Progress(sender.State().Offset, uint64(s.file.Size), r.Speed, r.ETA)
	})
	if err != nil {
		return transfererr.NewFile("send file", s.file.Name, transfererr.Transport, err)
	}

	s.cfg.Presenter.Complete(s.file.Name, uint64(s.file.Size), time.Since(start), float64(s.file.Size)/time.Since(start).Seconds())
	return nil
}

func (s *Session) runReceive(dc *webrtc.DataChannel) error {
	var recv *transfer.Receiver
	var meta wire.FileMetadata
	var received uint64
	start := time.Now()

	for {
		var msg webrtc.DataChannelMessage
		select {
		case msg = <-s.recvMsgs:
		case <-s.pcClosed:
			return transfererr.New("receive", transfererr.RemoteDisconnect, transfererr.ErrChannelClosed)
		}

		if msg.IsString {
			if devInfo, isDev := parseDeviceInfo(msg.Data); isDev {
				_ = devInfo
				continue
			}
			m, ok := transfer.ParseMetadata(string(msg.Data))
			if !ok {
				continue
			}
			meta = m
			if !s.cfg.Presenter.OfferFile(meta.Name, meta.Size, meta.FileType) {
				return nil
			}
			var err error
			recv, _, err = transfer.NewReceiver(meta, s.openSink)
			if err != nil {
				return err
			}
			if meta.Size == 0 {
				return s.finishReceive(recv, meta, start)
			}
			continue
		}

		if recv == nil {
			continue
		}
		done, err := recv.Ingest(msg.Data, func(r progress.Report) {
			s.cfg.Presenter.Progress(received+uint64(len(msg.Data)-crc32frame.Size), meta.Size, r.Speed, r.ETA)
		})
		if err != nil {
			slog.Warn("dropping corrupt chunk", "err", err)
			continue
		}
		received += uint64(len(msg.Data) - crc32frame.Size)
		if done {
			return s.finishReceive(recv, meta, start)
		}
	}
}

// finishReceive completes the receiver, persists the artifact, and reports
// it to the Presenter. A zero-byte transfer never produces a chunk frame to
// trigger this from Ingest's done return, so runReceive calls it directly
// once the metadata frame names size 0.
func (s *Session) finishReceive(recv *transfer.Receiver, meta wire.FileMetadata, start time.Time) error {
	artifact, err := recv.Complete()
	if err != nil {
		return err
	}
	if err := s.saveArtifact(artifact); err != nil {
		return err
	}
	s.cfg.Presenter.Complete(meta.Name, meta.Size, time.Since(start), float64(meta.Size)/time.Since(start).Seconds())
	return nil
}

func (s *Session) openSink(meta wire.FileMetadata) (transfer.Sink, string, bool) {
	if s.cfg.DownloadDir == "" {
		return nil, "", false
	}
	path := utils.GetUniqueFilename(filepath.Join(s.cfg.DownloadDir, meta.Name))
	sink, err := transfer.OpenFileSink(path)
	if err != nil {
		slog.Warn("failed to open streaming sink", "err", err)
		return nil, "", false
	}
	return sink, path, true
}

func (s *Session) saveArtifact(a transfer.Artifact) error {
	if a.Path != "" {
		return nil // already streamed to disk
	}
	dir := s.cfg.DownloadDir
	if dir == "" {
		dir = "."
	}
	path := utils.GetUniqueFilename(filepath.Join(dir, a.Name))
	return os.WriteFile(path, a.Bytes, 0o644)
}

func parseDeviceInfo(text []byte) (wire.DeviceInfo, bool) {
	var info wire.DeviceInfo
	if err := json.Unmarshal(text, &info); err != nil || info.Type != wire.DeviceInfoType {
		return wire.DeviceInfo{}, false
	}
	return info, true
}

