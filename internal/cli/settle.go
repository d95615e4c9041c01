package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/susu3304/warikan/internal/export"
	"github.com/susu3304/warikan/internal/ledger"
	"github.com/susu3304/warikan/internal/settle"
)

func NewSettleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <backup.json>",
		Short: "Print balances and the settlement plan of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := rootOpts.roster(os.Getenv("ROSTER_FILE"))
			if err != nil {
				return err
			}
			b, err := readBackup(args[0], roster)
			if err != nil {
				return err
			}
			plan := settle.NewPlan(roster, b.Expenses, b.PersonalDebts)
			if rootOpts.Format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			return writePlan(cmd.OutOrStdout(), roster, plan)
		},
	}
}

func readBackup(path string, roster *ledger.Roster) (export.Backup, error) {
	f, err := os.Open(path)
	if err != nil {
		return export.Backup{}, fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()
	return export.DecodeBackup(f, roster)
}

func writePlan(w io.Writer, roster *ledger.Roster, plan settle.Plan) error {
	fmt.Fprintf(w, "Total shared expenses: %s\n", ledger.FormatCurrency(plan.TotalShared))
	fmt.Fprintf(w, "Share per person:      %s\n", ledger.FormatCurrency(plan.SharePerHead))
	fmt.Fprintf(w, "Pending personal debts: %s\n\n", ledger.FormatCurrency(plan.TotalPendingDebts))

	fmt.Fprintln(w, "Balances:")
	for _, s := range plan.Summaries {
		fmt.Fprintf(w, "  %-10s %10s\n", s.Name, ledger.FormatCurrency(s.Balance))
	}
	fmt.Fprintln(w)

	if len(plan.Settlements) == 0 {
		_, err := fmt.Fprintln(w, "Everyone is settled up.")
		return err
	}
	fmt.Fprintln(w, "Settlements:")
	for _, s := range plan.Settlements {
		fmt.Fprintf(w, "  %s\n", s.Describe(roster))
	}
	_, err := fmt.Fprintf(w, "%d transactions, %s in total\n", len(plan.Settlements), ledger.FormatCurrency(settle.Total(plan.Settlements)))
	return err
}
