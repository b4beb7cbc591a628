package serverconfig

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, DefaultPort)
	}
	if cfg.MaxPeersPerRoom != DefaultMaxPeersPerRoom {
		t.Errorf("MaxPeersPerRoom = %d, want %d", cfg.MaxPeersPerRoom, DefaultMaxPeersPerRoom)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0] != DefaultSTUNServer {
		t.Errorf("ICEServers = %v, want [%s]", cfg.ICEServers, DefaultSTUNServer)
	}
}

func TestLoadOptionsOverrideDefaults(t *testing.T) {
	cfg, err := Load(Options{Port: "9999", MaxPeersPerRoom: 5})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.MaxPeersPerRoom != 5 {
		t.Errorf("MaxPeersPerRoom = %d, want 5", cfg.MaxPeersPerRoom)
	}
}

func TestClientViewExcludesServerOnlyKeys(t *testing.T) {
	cfg, _ := Load(Options{CorsOrigins: []string{"https://example.com"}})
	view := cfg.ClientView()
	if view.AppTitle != cfg.AppTitle {
		t.Errorf("ClientView dropped AppTitle")
	}
	// ClientView's type has no CorsOrigins/Port/TrustProxy field at all —
	// this is a compile-time guarantee, not a runtime check.
}
