package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/monitor"
)

func newReplayCmd(opts *options) *cobra.Command {
	var swap bool

	cmd := &cobra.Command{
		Use:   "replay <events.jsonl>",
		Short: "Apply a recorded event file and print the resulting lobby",
		Long: `replay reads typed events from a JSONL file (or "-" for stdin), applies
them in order to a fresh lobby and prints the final snapshot as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, cmd.ErrOrStderr())

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			events, err := monitor.ReadEvents(in, logger)
			if err != nil {
				return err
			}

			reducer := lobby.NewReducer(cfg.Lobby.StaleAfter, logger)
			snap := replaySnapshot(reducer, events, cfg.Steam.SelfSteamID)
			if swap {
				snap = snap.SwapTeams()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&swap, "swap", false, "Swap invaders and defenders in the output")
	return cmd
}

// replaySnapshot applies events to a fresh lobby and returns its snapshot
// with players in scoreboard order.
func replaySnapshot(reducer *lobby.Reducer, events []lobby.Event, self lobby.SteamID) *lobby.Snapshot {
	l := reducer.Replay(events)
	snap := l.Snapshot()
	snap.Self = self
	lobby.SortForScoreboard(snap.Players)
	return snap
}
