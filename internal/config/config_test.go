package config

import "testing"

func TestLoadDefaultServerAddr(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != DefaultServerAddr {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, DefaultServerAddr)
	}
	if cfg.WebSocketURL() != "ws://localhost:8080/ws" {
		t.Errorf("WebSocketURL = %q", cfg.WebSocketURL())
	}
}

func TestLoadOptionOverridesDefault(t *testing.T) {
	cfg, err := Load(Options{ServerAddr: "example.com:9000"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebSocketURL() != "ws://example.com:9000/ws" {
		t.Errorf("WebSocketURL = %q", cfg.WebSocketURL())
	}
}
