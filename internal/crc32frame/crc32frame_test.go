package crc32frame

import "testing"

func TestRoundTripHex(t *testing.T) {
	for _, x := range []uint32{0, 1, 0xEDB88320, 0xFFFFFFFF, 0x12345678} {
		hex := ToHex(x)
		if len(hex) != 8 {
			t.Fatalf("ToHex(%d) = %q, want 8 chars", x, hex)
		}
		got, err := FromHex(hex)
		if err != nil {
			t.Fatalf("FromHex(%q): %v", hex, err)
		}
		if got != x {
			t.Fatalf("round trip: got %d, want %d", got, x)
		}
	}
}

func TestEncodeDecodeVerify(t *testing.T) {
	payload := []byte("hello, world\n")
	frame := Encode(payload)
	if len(frame) != Size+len(payload) {
		t.Fatalf("frame length = %d, want %d", len(frame), Size+len(payload))
	}

	ok, received, computed, decoded, err := Verify(frame)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("Verify: received %08x != computed %08x", received, computed)
	}
	if string(decoded) != string(payload) {
		t.Fatalf("decoded payload = %q, want %q", decoded, payload)
	}
}

func TestVerifyCorruptedFrame(t *testing.T) {
	frame := Encode([]byte("payload"))
	frame[Size] ^= 0xFF // corrupt first payload byte

	ok, received, computed, _, err := Verify(frame)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("Verify: expected mismatch on corrupted frame")
	}
	if received == computed {
		t.Fatal("expected received != computed on corrupted frame")
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding a frame shorter than Size")
	}
}
