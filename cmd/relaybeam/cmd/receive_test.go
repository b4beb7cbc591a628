package cmd

import "testing"

func TestParseRoomInputBareID(t *testing.T) {
	room, err := parseRoomInput("a1b2c3d4")
	if err != nil {
		t.Fatalf("parseRoomInput: %v", err)
	}
	if room != "a1b2c3d4" {
		t.Errorf("room = %q", room)
	}
}

func TestParseRoomInputLink(t *testing.T) {
	room, err := parseRoomInput("http://relay.example.com/?room=a1b2c3d4")
	if err != nil {
		t.Fatalf("parseRoomInput: %v", err)
	}
	if room != "a1b2c3d4" {
		t.Errorf("room = %q", room)
	}
}

func TestParseRoomInputLinkWithoutRoomParam(t *testing.T) {
	if _, err := parseRoomInput("http://relay.example.com/"); err == nil {
		t.Fatal("expected error for link missing room parameter")
	}
}

func TestParseRoomInputEmpty(t *testing.T) {
	if _, err := parseRoomInput(""); err == nil {
		t.Fatal("expected error for empty input")
	}
}
