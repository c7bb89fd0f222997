package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coderoom/coderoom/internal/relay"
)

var bind string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run a local collaboration backend",
	Long: `Starts the reference relay: rooms, document sync, chat and presence
fan-out over websockets. Code execution is a stub; rooms live in memory
for the process lifetime.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Bind
		if bind != "" {
			addr = bind
		}

		log, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return relay.Serve(ctx, addr, nil, log)
	},
}

func init() {
	relayCmd.Flags().StringVar(&bind, "bind", "", "listen address (overrides CODEROOM_BIND)")
	rootCmd.AddCommand(relayCmd)
}
