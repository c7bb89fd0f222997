package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coderoom/coderoom/internal/channel"
	"github.com/coderoom/coderoom/internal/session"
	"github.com/coderoom/coderoom/internal/tui"
)

var relayURL string

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Connect to a collaboration backend and open the session UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := cfg.RelayURL
		if relayURL != "" {
			url = relayURL
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// The TUI owns the terminal, so the client side logs nowhere.
		ch, err := channel.Dial(ctx, url, zap.NewNop())
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", url, err)
		}
		defer ch.Close()

		sess := session.New(ctx, ch, session.Options{
			TypingTTL:      cfg.TypingTTL,
			TypingInterval: cfg.TypingInterval,
			ExecTimeout:    cfg.ExecTimeout,
		})
		defer sess.Close()

		p := tea.NewProgram(tui.New(sess), tea.WithAltScreen())

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := p.Run()
			cancel()
			return err
		})
		g.Go(func() error {
			// Quit the UI once the connection is gone.
			select {
			case <-ch.Done():
				p.Quit()
			case <-ctx.Done():
			}
			return nil
		})
		return g.Wait()
	},
}

func init() {
	joinCmd.Flags().StringVar(&relayURL, "url", "", "backend websocket URL (overrides CODEROOM_RELAY_URL)")
	rootCmd.AddCommand(joinCmd)
}
