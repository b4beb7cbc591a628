// Package config loads the CLI's runtime configuration: the signaling
// server address plus the client-visible keys the server's GET /config
// serves (ICE servers, chunk-size bounds, buffer water marks, size
// limits). Precedence is CLI flag > environment variable > default.
package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/relaybeam/relaybeam/internal/serverconfig"
)

// Defaults for standalone/offline use before a /config fetch completes.
const (
	DefaultServerAddr = "localhost:8080"
)

// Options carries CLI-flag overrides.
type Options struct {
	ServerAddr string
	ForceRelay bool
	TURNUser   string
	TURNPass   string
}

// Config is the CLI's resolved runtime configuration.
type Config struct {
	ServerAddr string
	ForceRelay bool
	TURNUser   string
	TURNPass   string

	// Remote is populated from the server's GET /config response once
	// fetched; it carries the client-visible keys.
	Remote serverconfig.ClientView
}

// Load resolves CLI flag > env var > default for the locally-known keys.
// The Remote field is left zero-valued; call FetchRemote to populate it.
func Load(opts Options) (*Config, error) {
	addr := opts.ServerAddr
	if addr == "" {
		addr = os.Getenv("RELAYBEAM_SERVER")
	}
	if addr == "" {
		addr = DefaultServerAddr
	}

	return &Config{
		ServerAddr: addr,
		ForceRelay: opts.ForceRelay,
		TURNUser:   opts.TURNUser,
		TURNPass:   opts.TURNPass,
	}, nil
}

// WebSocketURL builds the /ws endpoint for the configured server.
func (c *Config) WebSocketURL() string {
	return fmt.Sprintf("ws://%s/ws", c.ServerAddr)
}

// ConfigURL builds the /config endpoint for the configured server.
func (c *Config) ConfigURL() string {
	return fmt.Sprintf("http://%s/config", c.ServerAddr)
}

// FetchRemote retrieves and stores the server's client-visible configuration
// before a session starts.
func (c *Config) FetchRemote() error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(c.ConfigURL())
	if err != nil {
		return fmt.Errorf("fetch /config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch /config: unexpected status %d", resp.StatusCode)
	}

	var view serverconfig.ClientView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return fmt.Errorf("decode /config: %w", err)
	}
	c.Remote = view
	return nil
}
