// Package crc32frame implements the IEEE CRC32 codec used to checksum each
// binary chunk frame on the data channel, and the little-endian frame layout
// those checksums are carried in.
package crc32frame

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
)

// Size is the number of leading bytes a frame spends on the checksum.
const Size = 4

// Sum computes the IEEE CRC32 of payload.
func Sum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// ToHex renders a checksum as 8 lowercase hex digits, zero-padded.
func ToHex(sum uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], sum)
	return hex.EncodeToString(b[:])
}

// FromHex parses the 8-digit hex form produced by ToHex back into a checksum.
func FromHex(s string) (uint32, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("crc32frame: decode hex: %w", err)
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("crc32frame: want 4 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

// Encode builds the wire frame for payload: a little-endian u32 CRC32
// followed by the payload bytes.
func Encode(payload []byte) []byte {
	frame := make([]byte, Size+len(payload))
	binary.LittleEndian.PutUint32(frame[:Size], Sum(payload))
	copy(frame[Size:], payload)
	return frame
}

// Decode splits a wire frame into its checksum and payload. It does not
// verify the checksum; call Verify for that.
func Decode(frame []byte) (sum uint32, payload []byte, err error) {
	if len(frame) < Size {
		return 0, nil, fmt.Errorf("crc32frame: frame too short: %d bytes", len(frame))
	}
	sum = binary.LittleEndian.Uint32(frame[:Size])
	payload = frame[Size:]
	return sum, payload, nil
}

// Verify reports whether the frame's leading checksum matches the CRC32 of
// its payload, returning both the received and computed checksums for
// diagnostics regardless of the outcome.
func Verify(frame []byte) (ok bool, received, computed uint32, payload []byte, err error) {
	received, payload, err = Decode(frame)
	if err != nil {
		return false, 0, 0, nil, err
	}
	computed = Sum(payload)
	return received == computed, received, computed, payload, nil
}
