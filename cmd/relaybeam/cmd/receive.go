package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relaybeam/relaybeam/internal/config"
	"github.com/relaybeam/relaybeam/internal/presenter/cliterm"
	"github.com/relaybeam/relaybeam/internal/session"
)

var (
	flagRecvServer   string
	flagRecvTURNUser string
	flagRecvTURNPass string
	flagRecvRelay    bool
	flagRecvOutDir   string
)

var receiveCmd = &cobra.Command{
	Use:     "receive <room-id|link>",
	Aliases: []string{"r"},
	Short:   "Receive a file from a sender",
	Long: `Receive a file from a sender over a WebRTC data channel, given the
room id the sender shared or the full share link.

Examples:
  relaybeam receive a1b2c3d4
  relaybeam receive "http://relay.example.com/?room=a1b2c3d4"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room, err := parseRoomInput(args[0])
		if err != nil {
			return err
		}
		return runReceive(room)
	},
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVarP(&flagRecvServer, "server", "S", "", "Signaling server address (host:port)")
	receiveCmd.Flags().StringVarP(&flagRecvTURNUser, "turn-user", "u", "", "TURN username")
	receiveCmd.Flags().StringVarP(&flagRecvTURNPass, "turn-pass", "p", "", "TURN password")
	receiveCmd.Flags().BoolVarP(&flagRecvRelay, "relay", "r", false, "Force relay (TURN-only) ICE transport")
	receiveCmd.Flags().StringVarP(&flagRecvOutDir, "out", "o", "", "Directory to save the received file into (defaults to the current directory)")
}

func runReceive(room string) error {
	cliCfg, err := config.Load(config.Options{
		ServerAddr: flagRecvServer,
		ForceRelay: flagRecvRelay,
		TURNUser:   flagRecvTURNUser,
		TURNPass:   flagRecvTURNPass,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cliCfg.FetchRemote(); err != nil {
		return fmt.Errorf("fetch server config: %w", err)
	}

	// The file name/size aren't known until the sender's metadata frame
	// arrives; the terminal's progress program is re-pointed at the real
	// file via Terminal.SetFile once the Presenter's OfferFile fires.
	term := cliterm.New("(waiting for sender)", 0)

	sess := session.New(session.Config{
		ICEServers:    buildICEServers(cliCfg.Remote.ICEServers, cliCfg.TURNUser, cliCfg.TURNPass),
		ForceRelay:    cliCfg.ForceRelay,
		BaseChunkSize: int(cliCfg.Remote.DefaultChunkSize),
		DownloadDir:   flagRecvOutDir,
		Presenter:     term,
	}, cliCfg.WebSocketURL())

	errCh := make(chan error, 1)
	go func() { errCh <- sess.Receive(room) }()

	if err := term.Run(); err != nil {
		return err
	}
	return <-errCh
}

// parseRoomInput accepts either a bare room id or a full share link
// ("scheme://host/?room=<id>") and extracts the room id either way.
func parseRoomInput(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("room id or link cannot be empty")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid link: %w", err)
	}
	room := parsed.Query().Get("room")
	if room == "" {
		return "", fmt.Errorf("link has no room parameter: %s", input)
	}
	return room, nil
}
