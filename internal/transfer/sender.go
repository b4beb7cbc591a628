// Package transfer is the send and receive side of the chunked transfer
// pipeline: a framed, CRC32-verified chunk stream with adaptive
// batch-size and yield-interval tuning and event-driven backpressure. The
// chunk size is not adapted: every chunk but the last uses the base chunk
// size.
package transfer

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/relaybeam/relaybeam/internal/crc32frame"
	"github.com/relaybeam/relaybeam/internal/progress"
	"github.com/relaybeam/relaybeam/internal/transfererr"
	"github.com/relaybeam/relaybeam/internal/wire"
)

// Tunables for the adaptive send loop.
const (
	DefaultChunkSize = 131072
	HighWater        = 1024 * 1024
	MinYieldInterval = 10 * time.Millisecond
	MaxYieldInterval = 200 * time.Millisecond
	StartYield       = 50 * time.Millisecond
)

// TargetBuffer is max(131072, HighWater/2).
var TargetBuffer = int(math.Max(131072, HighWater/2))

// SendState is the mutable state owned exclusively by the send pipeline.
type SendState struct {
	FileID             string
	Offset             uint64
	BaseChunkSize      int
	CurrentChunkSize   int
	BatchSize          int
	YieldInterval      time.Duration
	Paused             bool
	BackpressureEvents int
	StartTime          time.Time
}

func newFileID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Sender drives the main send loop for a single file over one data channel.
type Sender struct {
	dc       *webrtc.DataChannel
	state    SendState
	progress *progress.Throttle

	mu            sync.Mutex
	resumeArmed   bool
	chunksInBatch int
}

// NewSender prepares SendState for a fresh transfer.
func NewSender(dc *webrtc.DataChannel, baseChunkSize int) (*Sender, error) {
	if baseChunkSize <= 0 {
		baseChunkSize = DefaultChunkSize
	}
	fileID, err := newFileID()
	if err != nil {
		return nil, transfererr.New("init send state", transfererr.Validation, err)
	}

	s := &Sender{
		dc: dc,
		state: SendState{
			FileID:           fileID,
			BaseChunkSize:    baseChunkSize,
			CurrentChunkSize: baseChunkSize,
			BatchSize:        1,
			YieldInterval:    StartYield,
			StartTime:        time.Now(),
		},
	}
	return s, nil
}

// SendMetadata emits the FileMetadata text frame.
func (s *Sender) SendMetadata(name string, size uint64, fileType string, lastModified int64) error {
	if s.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return transfererr.New("send metadata", transfererr.Transport, transfererr.ErrChannelClosed)
	}
	totalChunks := uint32((size + uint64(s.state.BaseChunkSize) - 1) / uint64(s.state.BaseChunkSize))
	if size == 0 {
		totalChunks = 0
	}
	meta := wire.FileMetadata{
		Type:         wire.MetadataType,
		FileID:       s.state.FileID,
		Name:         name,
		Size:         size,
		FileType:     fileType,
		LastModified: lastModified,
		TotalChunks:  totalChunks,
		ChunkSize:    uint32(s.state.BaseChunkSize),
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return transfererr.New("marshal metadata", transfererr.Validation, err)
	}
	if err := s.dc.SendText(string(payload)); err != nil {
		return transfererr.New("send metadata", transfererr.Transport, err)
	}
	return nil
}

// Run executes the main send loop for a file of the given size, blocking
// until every byte has been sent or a terminal error occurs. Backpressure
// pauses are resumed internally off the channel's bufferedamountlow event;
// the caller never sees the intermediate pauses.
func (s *Sender) Run(file io.Reader, size uint64, onProgress func(progress.Report)) error {
	s.progress = progress.New(s.state.StartTime)
	done := make(chan error, 1)

	var attempt func()
	attempt = func() {
		err := s.runLoop(file, size, onProgress)
		if err != nil {
			done <- err
			return
		}
		if s.state.Offset >= size {
			done <- nil
		}
		// else: paused, waiting on bufferedamountlow to re-invoke attempt.
	}

	s.dc.OnBufferedAmountLow(func() {
		s.mu.Lock()
		armed := s.resumeArmed
		s.mu.Unlock()
		if armed {
			go attempt()
		}
	})

	go attempt()
	return <-done
}

// runLoop is the body of the send loop's repeat-while cycle. It returns
// (rather than sleeping) the moment bufferedAmount exceeds HighWater;
// resumption happens by re-entry from the bufferedamountlow callback.
func (s *Sender) runLoop(file io.Reader, size uint64, onProgress func(progress.Report)) error {
	buf := make([]byte, s.state.CurrentChunkSize)

	for s.state.Offset < size {
		if s.dc.ReadyState() != webrtc.DataChannelStateOpen {
			return transfererr.New("send", transfererr.Transport, transfererr.ErrChannelClosed)
		}

		if s.dc.BufferedAmount() > HighWater {
			s.mu.Lock()
			s.state.Paused = true
			s.state.BackpressureEvents++
			s.resumeArmed = true
			s.mu.Unlock()
			return nil
		}
		s.mu.Lock()
		s.state.Paused = false
		s.resumeArmed = false
		s.mu.Unlock()

		if len(buf) < s.state.CurrentChunkSize {
			buf = make([]byte, s.state.CurrentChunkSize)
		}
		want := s.state.CurrentChunkSize
		if remaining := size - s.state.Offset; remaining < uint64(want) {
			want = int(remaining)
		}

		n, err := io.ReadFull(file, buf[:want])
		if err != nil && err != io.ErrUnexpectedEOF && n == 0 {
			return transfererr.New("read file", transfererr.StreamingIO, err)
		}

		frame := crc32frame.Encode(buf[:n])
		if s.dc.ReadyState() != webrtc.DataChannelStateOpen {
			return transfererr.New("send", transfererr.Transport, transfererr.ErrChannelClosed)
		}
		if err := s.dc.Send(frame); err != nil {
			return transfererr.New("send chunk", transfererr.Transport, err)
		}

		s.state.Offset += uint64(n)
		if onProgress != nil {
			if report, ok := s.progress.Observe(s.state.Offset, size, time.Now()); ok {
				onProgress(report)
			}
		}

		s.chunksInBatch++
		if s.chunksInBatch >= s.state.BatchSize {
			s.chunksInBatch = 0
			s.applyAdaptiveRules()
			time.Sleep(s.state.YieldInterval)
		}
	}

	return nil
}

// applyAdaptiveRules implements the batch-boundary tuning.
func (s *Sender) applyAdaptiveRules() {
	buffered := s.dc.BufferedAmount()
	switch {
	case buffered < uint64(TargetBuffer/4) && s.state.BatchSize < 20:
		s.state.BatchSize = min(20, s.state.BatchSize+2)
		if s.state.YieldInterval > MinYieldInterval+5*time.Millisecond {
			s.state.YieldInterval -= 5 * time.Millisecond
		} else {
			s.state.YieldInterval = MinYieldInterval
		}
	case buffered > uint64(TargetBuffer) && s.state.BatchSize > 1:
		s.state.BatchSize = max(1, int(float64(s.state.BatchSize)*0.7))
		s.state.YieldInterval = min(MaxYieldInterval, s.state.YieldInterval+20*time.Millisecond)
	}
}

// State exposes the sender's current SendState for diagnostics and tests.
func (s *Sender) State() SendState {
	return s.state
}
