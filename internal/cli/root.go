// Package cli wires the client core, the relay, and the TUI into the
// coderoom command.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/coderoom/coderoom/internal/config"
)

// cfg holds the loaded configuration, populated in PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "coderoom",
	Short: "Collaborative coding sessions in the terminal",
	Long: `coderoom is a client for shared coding sessions: one document, one
roster, one chat transcript per room, synced over a single event channel.
Run "coderoom relay" to start a local backend and "coderoom join" to
connect to one.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
