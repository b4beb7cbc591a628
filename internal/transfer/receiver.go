package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/relaybeam/relaybeam/internal/crc32frame"
	"github.com/relaybeam/relaybeam/internal/progress"
	"github.com/relaybeam/relaybeam/internal/transfererr"
	"github.com/relaybeam/relaybeam/internal/wire"
)

// MaxInMemory is the in-memory/streaming threshold.
const MaxInMemory = 200 * 1024 * 1024

// Sink is the streaming write destination for a file too large to hold in
// memory.
type Sink interface {
	Write(p []byte) (int, error)
	Close() error
}

// Artifact is the reconstructed file handed to the Presenter, either
// in-memory bytes or a path that was streamed to disk.
type Artifact struct {
	Name         string
	MimeType     string
	LastModified int64
	Bytes        []byte // set when the in-memory path was used
	Path         string // set when the streaming path was used
}

// Receiver assembles one incoming file from framed chunks.
type Receiver struct {
	meta     wire.FileMetadata
	progress *progress.Throttle

	useStreaming  bool
	sink          Sink
	sinkPath      string
	chunksMem     map[uint32][]byte
	receivedBytes uint64
	receivedCnt   uint32

	lastValidationErr error
}

// SinkOpener acquires a streaming write sink for a file expected to exceed
// MaxInMemory, returning ok=false if the user cancels or no sink is
// available.
type SinkOpener func(meta wire.FileMetadata) (sink Sink, path string, ok bool)

// NewReceiver begins a transfer described by a FileMetadata text frame.
// openSink is consulted only when meta.Size exceeds MaxInMemory.
func NewReceiver(meta wire.FileMetadata, openSink SinkOpener) (*Receiver, bool, error) {
	r := &Receiver{
		meta:      meta,
		progress:  progress.New(time.Now()),
		chunksMem: make(map[uint32][]byte),
	}

	warnMemory := false
	if meta.Size > MaxInMemory {
		if openSink != nil {
			if sink, path, ok := openSink(meta); ok {
				r.useStreaming = true
				r.sink = sink
				r.sinkPath = path
				return r, false, nil
			}
		}
		warnMemory = true
	}
	return r, warnMemory, nil
}

// ParseMetadata decodes the first text frame into a FileMetadata, returning
// ok=false if it isn't one (e.g. a device-info frame instead).
func ParseMetadata(text string) (wire.FileMetadata, bool) {
	var meta wire.FileMetadata
	if err := json.Unmarshal([]byte(text), &meta); err != nil {
		return wire.FileMetadata{}, false
	}
	if meta.Type != wire.MetadataType {
		return wire.FileMetadata{}, false
	}
	return meta, true
}

// Ingest handles one binary frame. It returns done=true once the canonical
// completion condition (received_bytes == meta.size) holds.
func (r *Receiver) Ingest(frame []byte, onProgress func(progress.Report)) (done bool, err error) {
	ok, received, computed, payload, derr := crc32frame.Verify(frame)
	if derr != nil {
		return false, transfererr.New("ingest chunk", transfererr.Validation, derr)
	}
	if !ok {
		r.lastValidationErr = fmt.Errorf("checksum mismatch: got %08x want %08x", received, computed)
		return false, transfererr.Wrap("verify chunk", transfererr.Integrity, transfererr.ErrChecksumMismatch,
			fmt.Sprintf("received=%s computed=%s", crc32frame.ToHex(received), crc32frame.ToHex(computed)))
	}

	if r.useStreaming {
		if _, werr := r.sink.Write(payload); werr != nil {
			return false, transfererr.New("write chunk", transfererr.StreamingIO, werr)
		}
	} else {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		r.chunksMem[r.receivedCnt] = cp
	}

	r.receivedCnt++
	r.receivedBytes += uint64(len(payload))

	if onProgress != nil {
		if report, ok := r.progress.Observe(r.receivedBytes, r.meta.Size, time.Now()); ok {
			onProgress(report)
		}
	}

	return r.receivedBytes == r.meta.Size, nil
}

// LastValidationError returns the most recent checksum mismatch detail, if
// any, for diagnostics.
func (r *Receiver) LastValidationError() error {
	return r.lastValidationErr
}

// Complete finalizes the transfer and returns the resulting Artifact.
func (r *Receiver) Complete() (Artifact, error) {
	if r.useStreaming {
		if err := r.sink.Close(); err != nil {
			return Artifact{}, transfererr.New("close sink", transfererr.StreamingIO, err)
		}
		return Artifact{
			Name:         r.meta.Name,
			MimeType:     r.meta.FileType,
			LastModified: r.meta.LastModified,
			Path:         r.sinkPath,
		}, nil
	}

	keys := make([]uint32, 0, len(r.chunksMem))
	for k := range r.chunksMem {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]byte, 0, r.receivedBytes)
	for _, k := range keys {
		out = append(out, r.chunksMem[k]...)
	}
	r.chunksMem = nil

	return Artifact{
		Name:         r.meta.Name,
		MimeType:     r.meta.FileType,
		LastModified: r.meta.LastModified,
		Bytes:        out,
	}, nil
}

// FileSink is the filesystem realization of Sink, used on the streaming
// path.
type FileSink struct {
	f *os.File
}

// OpenFileSink creates (or truncates) path for streaming writes.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *FileSink) Close() error                { return s.f.Close() }

var _ io.WriteCloser = (*FileSink)(nil)
