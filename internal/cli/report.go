package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/susu3304/warikan/internal/export"
)

type reportOptions struct {
	sections string
	output   string
}

func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report <backup.json>",
		Short: "Render the CSV report of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := export.ParseSections(opts.sections)
			if err != nil {
				return err
			}
			roster, err := rootOpts.roster(os.Getenv("ROSTER_FILE"))
			if err != nil {
				return err
			}
			b, err := readBackup(args[0], roster)
			if err != nil {
				return err
			}
			report := export.Report{
				Roster:      roster,
				Expenses:    b.Expenses,
				Debts:       b.PersonalDebts,
				GeneratedAt: time.Now(),
				Sections:    sections,
			}

			if opts.output == "" || opts.output == "-" {
				_, err = report.WriteTo(cmd.OutOrStdout())
				return err
			}
			f, err := os.Create(opts.output)
			if err != nil {
				return fmt.Errorf("failed to create report: %w", err)
			}
			if _, err := report.WriteTo(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", opts.output)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.sections, "sections", "", "comma separated sections (summary,expenses,debts,settlements,matrix)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")
	return cmd
}
