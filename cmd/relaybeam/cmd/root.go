package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/relaybeam/relaybeam/internal/logging"
	"github.com/relaybeam/relaybeam/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "relaybeam",
	Short:   "Peer-to-peer file transfer over WebRTC",
	Long:    `relaybeam sends one file directly between two peers over a WebRTC data channel, using a signaling server only to exchange connection offers.`,
	Version: version.Version,
}

// Execute adds all child commands to rootCmd and runs it. Called once from
// main.main.
func Execute() {
	logging.Init()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		fmt.Println("\ninterrupted")
		os.Exit(130)
	}()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
