package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gtxlabs/gtxips/internal/cli"
	"github.com/gtxlabs/gtxips/internal/engine"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Manage ledger entries",
		Long: `Create, update and delete ledger entries. Each change updates the
balances of the users involved and recalculates the quotation chain from the
earliest month it touched.`,
	}

	cmd.AddCommand(listTxCmd())
	cmd.AddCommand(addTxCmd())
	cmd.AddCommand(updateTxCmd())
	cmd.AddCommand(deleteTxCmd())

	return cmd
}

func listTxCmd() *cobra.Command {
	var user, from, to string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries in date order",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			filter := service.TransactionFilter{UserID: user, Limit: limit}
			if from != "" {
				d, err := parseOptionalDate(from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				filter.StartDate = &d
			}
			if to != "" {
				d, err := parseOptionalDate(to)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				filter.EndDate = &d
			}

			entries, err := a.store.ListTransactions(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list ledger: %w", err)
			}
			if len(entries) == 0 {
				a.println(cli.SubtleStyle.Render("No ledger entries found."))
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("DATE"),
				cli.TableHeaderStyle.Render("USER"),
				cli.TableHeaderStyle.Render("AMOUNT"),
				cli.TableHeaderStyle.Render("REASON"),
			}, "\t"))
			for _, e := range entries {
				effect := e.Effect()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Date, e.UserID,
					cli.FormatSigned(effect.String(), effect.IsNegative()),
					e.Reason)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().StringVar(&user, "user", "", "only entries of this user")
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries")
	return cmd
}

// txFlags holds the flags shared by add and update.
type txFlags struct {
	user, day, typ, amount, reason string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "owner of the entry")
	cmd.Flags().StringVar(&f.day, "date", "", "entry date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.typ, "type", "", "credito or debito (credit/debit accepted)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount of GTXips, always positive")
	cmd.Flags().StringVar(&f.reason, "reason", "", "reason shown in the ledger")
}

// apply overwrites the fields of txn whose flags were set.
func (f *txFlags) apply(cmd *cobra.Command, txn *model.Transaction) error {
	flags := cmd.Flags()
	if flags.Changed("user") {
		txn.UserID = f.user
	}
	if flags.Changed("date") {
		d, err := parseOptionalDate(f.day)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		txn.Date = d
	}
	if flags.Changed("type") {
		t, err := model.ParseTransactionType(f.typ)
		if err != nil {
			return err
		}
		txn.Type = t
	}
	if flags.Changed("amount") {
		p, err := money.ParsePoints(f.amount)
		if err != nil {
			return err
		}
		txn.Amount = p
	}
	if flags.Changed("reason") {
		txn.Reason = f.reason
	}
	return nil
}

func addTxCmd() *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a credit or debit",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			txn := &model.Transaction{Date: a.cfg.Engine().Clock.Today()}
			if err := f.apply(cmd, txn); err != nil {
				return err
			}

			result, err := a.coord.Create(cmd.Context(), txn)
			if err != nil {
				return err
			}
			a.printMutation("Recorded", result)
			return nil
		}),
	}

	f.register(cmd)
	for _, name := range []string{"user", "type", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func updateTxCmd() *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a ledger entry",
		Long: `Change any field of a ledger entry. Moving an entry to another user
reverts it on the original owner and applies it to the new one.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			txn, err := a.store.GetTransaction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := f.apply(cmd, txn); err != nil {
				return err
			}

			result, err := a.coord.Update(cmd.Context(), txn)
			if err != nil {
				return err
			}
			a.printMutation("Updated", result)
			return nil
		}),
	}

	f.register(cmd)
	return cmd
}

func deleteTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a ledger entry and reverse its effect",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			result, err := a.coord.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printMutation("Deleted", result)
			return nil
		}),
	}
}

func (a *app) printMutation(verb string, result *engine.MutationResult) {
	a.println(cli.FormatSuccess(fmt.Sprintf("%s %s", verb, result.Transaction.ID)))

	users := make([]string, 0, len(result.Deltas))
	for u := range result.Deltas {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		d := result.Deltas[u]
		a.printf("  %s %s\n", u, cli.FormatSigned(d.String(), d.IsNegative()))
	}
	a.printRecalc(result.Recalc)
}

func (a *app) printRecalc(report *engine.RecalcReport) {
	if report == nil {
		return
	}
	a.printf("  Quotations %s..%s: %d written, %d unchanged\n",
		report.From, report.Through, report.Written, report.Unchanged)
	for _, p := range report.Failed {
		a.println(cli.FormatWarning("  Quotation of " + p.String() + " could not be written"))
	}
}
