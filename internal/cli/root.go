package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/susu3304/warikan/internal/config"
	"github.com/susu3304/warikan/internal/ledger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	RosterFile string
	Format     string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the warikan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "warikan",
		Short: "Shared bill splitter with a live room relay",
		Long: `warikan tracks shared expenses and personal debts for a fixed group,
computes who should pay whom, and keeps every connected client of a room
in sync over WebSockets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.RosterFile, "roster", "", "YAML roster file (default: built-in roster)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSettleCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

func (o *RootOptions) roster(fallback string) (*ledger.Roster, error) {
	path := o.RosterFile
	if path == "" {
		path = fallback
	}
	return config.LoadRoster(path)
}
