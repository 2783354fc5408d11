package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adanyl0v/taskboard/internal/board"
	"github.com/adanyl0v/taskboard/internal/tui"
)

func (a *app) newBoardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive kanban board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			// The board owns the terminal. Failures reach the user as
			// notices instead of log lines.
			return a.opts.RunBoard(tui.New(board.NewProjector(c, zerolog.Nop())))
		},
	}
}
