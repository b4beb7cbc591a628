// Package serverconfig loads the signaling server's runtime configuration,
// split into a server-only set (never exposed) and a client-visible set
// (served verbatim from GET /config). The two are distinct structs on
// purpose — the split is enforced by what the encoder can reach, not by
// field filtering at serialization time.
package serverconfig

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the domain-facing knobs, plus the server-only keys below.
const (
	DefaultPort                  = "8080"
	DefaultMaxSignalPayloadBytes = 64 * 1024
	DefaultMaxPeersPerRoom       = 2
	DefaultRoomTTLMs             = int64(30 * time.Minute / time.Millisecond)
	DefaultDefaultChunkSize      = 64 * 1024
	DefaultMinChunkSize          = 16 * 1024
	DefaultMaxChunkSize          = 256 * 1024
	DefaultBufferHighWater       = 8 * 1024 * 1024
	DefaultBufferLowWater        = 2 * 1024 * 1024
	DefaultMaxInMemorySize       = 64 * 1024 * 1024
	DefaultMaxFileSize           = 10 * 1024 * 1024 * 1024
	DefaultAppTitle              = "relaybeam"
	DefaultThemeColor            = "#7c3aed"
	DefaultSTUNServer            = "stun:stun.l.google.com:19302"
)

// Options carries CLI-flag overrides; empty/zero fields fall through to the
// environment and then to defaults.
type Options struct {
	Port                  string
	TrustProxy            *bool
	CorsOrigins           []string
	MaxSignalPayloadBytes int
	MaxPeersPerRoom       int
	RoomTTLMs             int64
	STUNServer            string
	TURNServer            string
	TURNUser              string
	TURNPass              string
	DonateURL             string
	TermsURL              string
}

// Config is the full runtime configuration, server-only and client-visible
// keys together.
type Config struct {
	// Server-only — never exposed via /config.
	Port                  string
	TrustProxy            bool
	CorsOrigins           []string
	MaxSignalPayloadBytes int
	MaxPeersPerRoom       int
	RoomTTLMs             int64

	// Client-visible — the ClientView of this struct.
	ICEServers       []string
	DefaultChunkSize uint32
	MinChunkSize     uint32
	MaxChunkSize     uint32
	BufferHighWater  uint64
	BufferLowWater   uint64
	MaxInMemorySize  uint64
	MaxFileSize      uint64
	AppTitle         string
	ThemeColor       string
	DonateURL        string
	TermsURL         string
}

// ClientView is the exact JSON shape served by GET /config. Only the
// fields safe to hand to an untrusted client live here.
type ClientView struct {
	ICEServers       []string `json:"iceServers"`
	DefaultChunkSize uint32   `json:"defaultChunkSize"`
	MinChunkSize     uint32   `json:"minChunkSize"`
	MaxChunkSize     uint32   `json:"maxChunkSize"`
	BufferHighWater  uint64   `json:"bufferHighWater"`
	BufferLowWater   uint64   `json:"bufferLowWater"`
	MaxInMemorySize  uint64   `json:"maxInMemorySize"`
	MaxFileSize      uint64   `json:"maxFileSize"`
	AppTitle         string   `json:"appTitle"`
	ThemeColor       string   `json:"themeColor"`
	DonateURL        string   `json:"donateUrl"`
	TermsURL         string   `json:"termsUrl"`
}

// ClientView projects the client-visible subset for serialization.
func (c *Config) ClientView() ClientView {
	return ClientView{
		ICEServers:       c.ICEServers,
		DefaultChunkSize: c.DefaultChunkSize,
		MinChunkSize:     c.MinChunkSize,
		MaxChunkSize:     c.MaxChunkSize,
		BufferHighWater:  c.BufferHighWater,
		BufferLowWater:   c.BufferLowWater,
		MaxInMemorySize:  c.MaxInMemorySize,
		MaxFileSize:      c.MaxFileSize,
		AppTitle:         c.AppTitle,
		ThemeColor:       c.ThemeColor,
		DonateURL:        c.DonateURL,
		TermsURL:         c.TermsURL,
	}
}

// Load resolves CLI flag (Options) > environment variable > default for the
// port, trust-proxy, CORS origins, signal payload, peers-per-room, room TTL
// and STUN/TURN server keys. DonateURL and TermsURL come from Options only,
// Options.TURNUser and Options.TURNPass are not read, and the chunk-size,
// buffer water-mark, size-limit, title and theme keys always take their
// defaults.
func Load(opts Options) (*Config, error) {
	port := firstNonEmpty(opts.Port, os.Getenv("PORT"), DefaultPort)

	trustProxy := false
	if opts.TrustProxy != nil {
		trustProxy = *opts.TrustProxy
	} else if v := os.Getenv("TRUST_PROXY"); v != "" {
		trustProxy, _ = strconv.ParseBool(v)
	}

	corsOrigins := opts.CorsOrigins
	if len(corsOrigins) == 0 {
		if v := os.Getenv("CORS_ORIGINS"); v != "" {
			corsOrigins = strings.Split(v, ",")
		}
	}

	maxSignalPayload := firstPositiveInt(opts.MaxSignalPayloadBytes, envInt("MAX_SIGNAL_PAYLOAD_BYTES"), DefaultMaxSignalPayloadBytes)
	maxPeersPerRoom := firstPositiveInt(opts.MaxPeersPerRoom, envInt("MAX_PEERS_PER_ROOM"), DefaultMaxPeersPerRoom)
	roomTTLMs := firstPositiveInt64(opts.RoomTTLMs, envInt64("ROOM_TTL_MS"), DefaultRoomTTLMs)

	stunServer := firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUNServer)
	iceServers := []string{stunServer}
	if turnServer := firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER"), ""); turnServer != "" {
		iceServers = append(iceServers, turnServer)
	}

	return &Config{
		Port:                  port,
		TrustProxy:            trustProxy,
		CorsOrigins:           corsOrigins,
		MaxSignalPayloadBytes: maxSignalPayload,
		MaxPeersPerRoom:       maxPeersPerRoom,
		RoomTTLMs:             roomTTLMs,

		ICEServers:       iceServers,
		DefaultChunkSize: DefaultDefaultChunkSize,
		MinChunkSize:     DefaultMinChunkSize,
		MaxChunkSize:     DefaultMaxChunkSize,
		BufferHighWater:  DefaultBufferHighWater,
		BufferLowWater:   DefaultBufferLowWater,
		MaxInMemorySize:  DefaultMaxInMemorySize,
		MaxFileSize:      DefaultMaxFileSize,
		AppTitle:         DefaultAppTitle,
		ThemeColor:       DefaultThemeColor,
		DonateURL:        opts.DonateURL,
		TermsURL:         opts.TermsURL,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositiveInt(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveInt64(vals ...int64) int64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func envInt64(key string) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
