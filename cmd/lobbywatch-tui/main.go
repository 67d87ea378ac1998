package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lobbywatch/backend/internal/tui/app"
	"github.com/lobbywatch/backend/internal/tui/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var wsURL, token string

	cmd := &cobra.Command{
		Use:           "lobbywatch-tui",
		Short:         "Terminal scoreboard for a running lobbywatch server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := client.NewWSClient(wsURL, token)
			defer ws.Close()

			p := tea.NewProgram(app.New(ws), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&wsURL, "url", "ws://127.0.0.1:8090/ws", "WebSocket URL of the lobbywatch server")
	cmd.Flags().StringVar(&token, "token", "", "Auth token (if the server requires it)")
	return cmd
}
