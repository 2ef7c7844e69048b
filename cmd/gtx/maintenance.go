package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gtxlabs/gtxips/internal/cli"
	"github.com/gtxlabs/gtxips/internal/date"
)

func maintenanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Rebuild balances and quotations from the ledger",
		Long: `Repair commands for data written outside the engine. resync and
fix-dates take an automatic checkpoint first when checkpoint.auto is set.`,
	}

	cmd.AddCommand(resyncCmd())
	cmd.AddCommand(fixDatesCmd())
	cmd.AddCommand(recalcCmd())
	cmd.AddCommand(balanceCmd())

	return cmd
}

func resyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Recompute every balance from the whole ledger",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			a.autoCheckpoint(cmd.Context(), "resync")

			progress := cli.NewProgress(cmd.ErrOrStderr(), "Resyncing balances")
			report, err := a.coord.Resync(cmd.Context(), progress.Update)
			progress.Finish()
			if err != nil {
				return err
			}

			for _, d := range report.Drift {
				a.printf("  %s: %s → %s\n", d.UserID, d.Cached, d.Ledger)
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Resynced %d profiles, %d corrected", report.Profiles, len(report.Drift))))
			return nil
		}),
	}
}

func fixDatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-dates",
		Short: "Rewrite legacy ledger dates as YYYY-MM-DD",
		Long: `Rewrite ledger dates stored as DD/MM/YYYY or "YYYY MM DD" in ISO form,
then resync balances and recalculate quotations from the earliest repaired
date. Dates that cannot be parsed are reported and left as they are.`,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			a.autoCheckpoint(cmd.Context(), "fix-dates")

			report, err := a.coord.FixDates(cmd.Context())
			if err != nil {
				return err
			}

			a.println(cli.FormatSuccess(fmt.Sprintf("Repaired %d of %d ledger dates", report.Repaired, report.Scanned)))
			for _, id := range report.Invalid {
				a.println(cli.FormatWarning("Unparseable date on entry " + id))
			}
			if report.Resync != nil {
				a.printf("  %d balances corrected\n", len(report.Resync.Drift))
			}
			a.printRecalc(report.Recalc)
			return nil
		}),
	}
}

func recalcCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate quotations from a month through the current one",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			start := date.New(1, 1, 1)
			if from != "" {
				p, err := parsePeriodArg(from)
				if err != nil {
					return err
				}
				start = p.FirstDay()
			}

			report, err := a.coord.Recalculate(cmd.Context(), start)
			if err != nil {
				return err
			}
			a.printRecalc(report)
			return nil
		}),
	}

	cmd.Flags().StringVar(&from, "from", "", "first month (MM/YYYY, default the earliest record)")
	return cmd
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <user>",
		Short: "Recompute one user's balance from their ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			balance, err := a.coord.RecalculateBalance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("%s balance: %s GTXips", args[0], balance)))
			return nil
		}),
	}
}
