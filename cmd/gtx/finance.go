package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gtxlabs/gtxips/internal/cli"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
)

func financeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Manage monthly cash generation and quotations",
		Long: `Record the cash generated each month. The quotation of a month is always
computed from the ledger and the previous quotation; it cannot be edited.`,
		Example: `  # Record March 2024
  gtx finance record 03/2024 125000,50

  # See what April would look like before recording it
  gtx finance preview 04/2024 98000

  # Year at a glance
  gtx finance overview --year 2024`,
	}

	cmd.AddCommand(listFinanceCmd())
	cmd.AddCommand(overviewFinanceCmd())
	cmd.AddCommand(recordFinanceCmd())
	cmd.AddCommand(updateFinanceCmd())
	cmd.AddCommand(removeFinanceCmd())
	cmd.AddCommand(previewFinanceCmd())

	return cmd
}

func listFinanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List financial records in chronological order",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			records, err := a.store.ListFinancialRecords(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list financial records: %w", err)
			}
			if len(records) == 0 {
				a.println(cli.SubtleStyle.Render("No financial records found."))
				return nil
			}
			return a.printRecords(records)
		}),
	}
}

func (a *app) printRecords(records []model.FinancialRecord) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join([]string{
		cli.TableHeaderStyle.Render("ID"),
		cli.TableHeaderStyle.Render("PERIOD"),
		cli.TableHeaderStyle.Render("CASH"),
		cli.TableHeaderStyle.Render("QUOTATION"),
	}, "\t"))
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Period, r.CashGenerated.Display(), r.Quotation.StringFixed(money.QuotationPlaces))
	}
	return w.Flush()
}

func overviewFinanceCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show the twelve months of a year",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if year == 0 {
				year = a.cfg.Engine().Clock.Today().Year()
			}
			ov, err := a.treasury.YearOverview(cmd.Context(), year)
			if err != nil {
				return err
			}

			var b strings.Builder
			w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
			for _, m := range ov.Months {
				if m.Pending() {
					fmt.Fprintf(w, "%s\t%s\n", m.Period, cli.SubtleStyle.Render("pending"))
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					m.Period,
					m.Record.CashGenerated.Display(),
					m.Record.Quotation.StringFixed(money.QuotationPlaces),
					cli.FormatSigned(m.Variation.StringFixed(money.QuotationPlaces), m.Variation.IsNegative()))
			}
			_ = w.Flush()

			fmt.Fprintf(&b, "\nAccumulated cash: %s", ov.AccumulatedCash.Display())
			if ov.Latest != nil {
				fmt.Fprintf(&b, "\nLatest quotation: %s (%s%%)",
					ov.Latest.Quotation.StringFixed(money.QuotationPlaces),
					ov.VariationPercent.StringFixed(2))
			}
			a.println(cli.RenderBox(fmt.Sprintf("%s %d", cli.ChartIcon, year), b.String()))
			return nil
		}),
	}

	cmd.Flags().IntVar(&year, "year", 0, "year to show (default current year)")
	return cmd
}

func recordFinanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <MM/YYYY> <cash>",
		Short: "Record the cash generated in a month",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			p, err := parsePeriodArg(args[0])
			if err != nil {
				return err
			}
			cash, err := money.ParseCash(args[1])
			if err != nil {
				return err
			}

			record, report, err := a.treasury.RecordCash(cmd.Context(), p, cash)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("%s quotation %s", record.Period, record.Quotation.StringFixed(money.QuotationPlaces))))
			a.printRecalc(report)
			return nil
		}),
	}
}

func updateFinanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <cash>",
		Short: "Change the cash generated of a record",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			cash, err := money.ParseCash(args[1])
			if err != nil {
				return err
			}

			record, report, err := a.treasury.UpdateCash(cmd.Context(), args[0], cash)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("%s quotation %s", record.Period, record.Quotation.StringFixed(money.QuotationPlaces))))
			a.printRecalc(report)
			return nil
		}),
	}
}

func removeFinanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a financial record",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			report, err := a.treasury.RemoveRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Removed record " + args[0]))
			a.printRecalc(report)
			return nil
		}),
	}
}

func previewFinanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <MM/YYYY> <cash>",
		Short: "Compute a month's quotation without saving it",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			p, err := parsePeriodArg(args[0])
			if err != nil {
				return err
			}
			cash, err := money.ParseCash(args[1])
			if err != nil {
				return err
			}

			r, err := a.treasury.Preview(cmd.Context(), p, cash)
			if err != nil {
				return err
			}
			a.println(cli.RenderBox("Preview "+p.String(), fmt.Sprintf(
				"Liability: %s\nSurplus:   %s\nVariation: %s\nQuotation: %s",
				r.Liability.Display(),
				r.Surplus.Display(),
				r.Variation.String(),
				r.Quotation.StringFixed(money.QuotationPlaces))))
			return nil
		}),
	}
}
