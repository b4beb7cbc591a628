package cmd

import "testing"

func TestBuildICEServersAttachesTURNCredentials(t *testing.T) {
	servers := buildICEServers([]string{"stun:stun.l.google.com:19302", "turn:turn.example.com:3478"}, "alice", "secret")
	if len(servers) != 2 {
		t.Fatalf("len(servers) = %d, want 2", len(servers))
	}
	if servers[0].Username != "" {
		t.Errorf("STUN server should not carry TURN credentials")
	}
	if servers[1].Username != "alice" || servers[1].Credential != "secret" {
		t.Errorf("TURN server = %+v, want credentials attached", servers[1])
	}
}
