package version

// Version is the current version of the relaybeam CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/relaybeam/relaybeam/internal/version.Version=v1.0.0'"
var Version = "dev"
