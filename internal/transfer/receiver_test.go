package transfer

import (
	"bytes"
	"testing"

	"github.com/relaybeam/relaybeam/internal/crc32frame"
	"github.com/relaybeam/relaybeam/internal/wire"
)

func TestReceiverHappyPath(t *testing.T) {
	meta := wire.FileMetadata{Type: wire.MetadataType, Name: "hello.txt", Size: 13, ChunkSize: 16, TotalChunks: 1}
	r, warn, err := NewReceiver(meta, nil)
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	if warn {
		t.Fatal("small file should not warn about memory")
	}

	data := []byte("hello, world\n")
	frame := crc32frame.Encode(data)

	done, err := r.Ingest(frame, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !done {
		t.Fatal("single-frame file should be done after one ingest")
	}

	artifact, err := r.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !bytes.Equal(artifact.Bytes, data) {
		t.Fatalf("got %q, want %q", artifact.Bytes, data)
	}
}

func TestReceiverZeroByteFile(t *testing.T) {
	meta := wire.FileMetadata{Type: wire.MetadataType, Name: "empty.bin", Size: 0}
	r, _, err := NewReceiver(meta, nil)
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	artifact, err := r.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(artifact.Bytes) != 0 {
		t.Fatalf("expected empty artifact, got %d bytes", len(artifact.Bytes))
	}
}

func TestReceiverRejectsCorruptFrame(t *testing.T) {
	meta := wire.FileMetadata{Type: wire.MetadataType, Name: "f.bin", Size: 4}
	r, _, _ := NewReceiver(meta, nil)

	frame := crc32frame.Encode([]byte("abcd"))
	frame[0] ^= 0xFF

	done, err := r.Ingest(frame, nil)
	if err == nil {
		t.Fatal("expected checksum mismatch error")
	}
	if done {
		t.Fatal("corrupt frame must not advance completion")
	}
	if r.receivedBytes != 0 {
		t.Fatal("corrupt frame must not advance received_bytes")
	}
}

func TestReceiverCompletionGatedByBytesNotChunkCount(t *testing.T) {
	// meta.total_chunks is a lower bound computed from the initial chunk
	// size; the canonical completion signal is received_bytes == size.
	meta := wire.FileMetadata{Type: wire.MetadataType, Name: "f.bin", Size: 20, ChunkSize: 16, TotalChunks: 2}
	r, _, _ := NewReceiver(meta, nil)

	done, err := r.Ingest(crc32frame.Encode(bytes.Repeat([]byte{1}, 10)), nil)
	if err != nil || done {
		t.Fatalf("first frame: done=%v err=%v", done, err)
	}
	done, err = r.Ingest(crc32frame.Encode(bytes.Repeat([]byte{2}, 5)), nil)
	if err != nil || done {
		t.Fatalf("second frame: done=%v err=%v", done, err)
	}
	done, err = r.Ingest(crc32frame.Encode(bytes.Repeat([]byte{3}, 5)), nil)
	if err != nil || !done {
		t.Fatalf("third frame should complete: done=%v err=%v", done, err)
	}
}

func TestParseMetadataRejectsNonMetadata(t *testing.T) {
	if _, ok := ParseMetadata(`{"type":"device-info","name":"x","version":"1"}`); ok {
		t.Fatal("device-info frame must not parse as FileMetadata")
	}
	if _, ok := ParseMetadata(`not json`); ok {
		t.Fatal("garbage must not parse")
	}
}
