package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/relaybeam/relaybeam/internal/signalclient"
	"github.com/relaybeam/relaybeam/internal/wire"
)

type fakePresenter struct {
	statuses  []string
	completed []string
}

func (f *fakePresenter) Status(text string)                    { f.statuses = append(f.statuses, text) }
func (f *fakePresenter) ShareLink(link string)                 {}
func (f *fakePresenter) AwaitApproval(string) bool              { return true }
func (f *fakePresenter) OfferFile(string, uint64, string) bool  { return true }
func (f *fakePresenter) Progress(uint64, uint64, float64, time.Duration) {}
func (f *fakePresenter) Complete(name string, size uint64, _ time.Duration, _ float64) {
	f.completed = append(f.completed, name)
}
func (f *fakePresenter) Error(err error) {}

func TestNewRoomIDUnique(t *testing.T) {
	a, err := newRoomID()
	if err != nil {
		t.Fatalf("newRoomID: %v", err)
	}
	b, _ := newRoomID()
	if a == b {
		t.Error("two room ids should not collide")
	}
	if len(a) != 32 {
		t.Errorf("room id len = %d, want 32 hex chars", len(a))
	}
}

func TestHandlePeerJoinedGuardsAgainstDuplicateOffer(t *testing.T) {
	s := New(Config{Presenter: &fakePresenter{}}, "ws://unused")
	s.room = "room1"

	s.handlePeerJoined(signalclient.PeerEvent{PeerID: "peer1", RoomID: "room1"})
	if s.offerCreatedFor != "room1" {
		t.Fatalf("offerCreatedFor = %q, want room1", s.offerCreatedFor)
	}
	if s.lastJoinedPeer != "peer1" {
		t.Fatalf("lastJoinedPeer = %q, want peer1", s.lastJoinedPeer)
	}

	// A second peer-joined for the same peer in the same room must not
	// clear the guard or re-arm the offer timer.
	s.handlePeerJoined(signalclient.PeerEvent{PeerID: "peer1", RoomID: "room1"})
	if s.offerCreatedFor != "room1" {
		t.Fatalf("offerCreatedFor changed on duplicate peer-joined: %q", s.offerCreatedFor)
	}
}

func TestHandlePeerJoinedClearsGuardForNewPeer(t *testing.T) {
	s := New(Config{Presenter: &fakePresenter{}}, "ws://unused")
	s.room = "room1"
	s.lastJoinedPeer = "peer1"
	s.offerCreatedFor = "room1"

	s.handlePeerJoined(signalclient.PeerEvent{PeerID: "peer2", RoomID: "room1"})
	if s.lastJoinedPeer != "peer2" {
		t.Fatalf("lastJoinedPeer = %q, want peer2", s.lastJoinedPeer)
	}
}

func TestRunReceiveCompletesZeroByteFileWithoutAChunk(t *testing.T) {
	presenter := &fakePresenter{}
	dir := t.TempDir()
	s := New(Config{Presenter: presenter, DownloadDir: dir}, "ws://unused")

	meta := wire.FileMetadata{Type: wire.MetadataType, FileID: "f1", Name: "empty.bin", Size: 0}
	payload, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	s.recvMsgs <- webrtc.DataChannelMessage{IsString: true, Data: payload}

	errCh := make(chan error, 1)
	go func() { errCh <- s.runReceive(nil) }()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runReceive returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runReceive blocked waiting for a chunk that a zero-byte transfer never sends")
	}

	if len(presenter.completed) != 1 || presenter.completed[0] != "empty.bin" {
		t.Fatalf("Complete calls = %v, want one call for empty.bin", presenter.completed)
	}
	if _, err := os.Stat(filepath.Join(dir, "empty.bin")); err != nil {
		t.Errorf("expected empty.bin to be written to disk: %v", err)
	}
}
