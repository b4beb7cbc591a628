package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaybeam/relaybeam/internal/config"
	"github.com/relaybeam/relaybeam/internal/files"
	"github.com/relaybeam/relaybeam/internal/presenter/cliterm"
	"github.com/relaybeam/relaybeam/internal/session"
	"github.com/relaybeam/relaybeam/internal/ui"
	"github.com/relaybeam/relaybeam/internal/utils"
)

var (
	flagServer     string
	flagTURNUser   string
	flagTURNPass   string
	flagForceRelay bool
)

var sendCmd = &cobra.Command{
	Use:     "send <file>",
	Aliases: []string{"s"},
	Short:   "Send a file to a receiver",
	Long: `Send a single file directly to a receiver over a WebRTC data channel.

Examples:
  relaybeam send report.pdf
  relaybeam send --server relay.example.com:8080 report.pdf
  relaybeam send --relay report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(args[0])
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&flagServer, "server", "S", "", "Signaling server address (host:port)")
	sendCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	sendCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	sendCmd.Flags().BoolVarP(&flagForceRelay, "relay", "r", false, "Force relay (TURN-only) ICE transport")
}

func runSend(path string) error {
	info, err := files.ValidateFiles([]string{path})
	if err != nil {
		return err
	}
	ui.RenderFileInfo(ui.FileInfoRow{Name: info[0].Name, Size: utils.FormatSize(info[0].Size), Type: info[0].Type})

	cliCfg, err := config.Load(config.Options{
		ServerAddr: flagServer,
		ForceRelay: flagForceRelay,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cliCfg.FetchRemote(); err != nil {
		return fmt.Errorf("fetch server config: %w", err)
	}

	term := cliterm.New(info[0].Name, info[0].Size)

	sess := session.New(session.Config{
		ICEServers:    buildICEServers(cliCfg.Remote.ICEServers, cliCfg.TURNUser, cliCfg.TURNPass),
		ForceRelay:    cliCfg.ForceRelay,
		BaseChunkSize: int(cliCfg.Remote.DefaultChunkSize),
		Presenter:     term,
	}, cliCfg.WebSocketURL())

	errCh := make(chan error, 1)
	go func() { errCh <- sess.Send(path) }()

	if err := term.Run(); err != nil {
		return err
	}
	return <-errCh
}
