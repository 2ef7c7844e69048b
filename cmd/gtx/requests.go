package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gtxlabs/gtxips/internal/cli"
	"github.com/gtxlabs/gtxips/internal/money"
	"github.com/gtxlabs/gtxips/internal/service"
)

func activitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Submit and review activity claims",
	}

	cmd.AddCommand(listActivitiesCmd())
	cmd.AddCommand(submitActivityCmd())
	cmd.AddCommand(reviewActivityCmd(true))
	cmd.AddCommand(reviewActivityCmd(false))

	return cmd
}

// requestFilterFlags registers --user and --status on cmd.
func requestFilterFlags(cmd *cobra.Command, f *service.RequestFilter) {
	cmd.Flags().StringVar(&f.UserID, "user", "", "only requests of this user")
	cmd.Flags().StringVar((*string)(&f.Status), "status", "", "pendente, aprovado or rejeitado")
}

func listActivitiesCmd() *cobra.Command {
	var filter service.RequestFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activity claims, newest first",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			activities, err := a.store.ListActivities(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list activities: %w", err)
			}
			if len(activities) == 0 {
				a.println(cli.SubtleStyle.Render("No activities found."))
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("DATE"),
				cli.TableHeaderStyle.Render("USER"),
				cli.TableHeaderStyle.Render("CATEGORY"),
				cli.TableHeaderStyle.Render("VALUE"),
				cli.TableHeaderStyle.Render("STATUS"),
			}, "\t"))
			for _, act := range activities {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", act.ID, act.Date, act.UserID, act.Category, act.Value, act.Status)
			}
			return w.Flush()
		}),
	}

	requestFilterFlags(cmd, &filter)
	return cmd
}

func submitActivityCmd() *cobra.Command {
	var user, rule, day string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Claim points under a rule",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			d, err := parseOptionalDate(day)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}

			act, err := a.approvals.SubmitActivity(cmd.Context(), user, rule, d)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Submitted %s (%s GTXips), awaiting review", act.ID, act.Value)))
			return nil
		}),
	}

	cmd.Flags().StringVar(&user, "user", "", "requesting user")
	cmd.Flags().StringVar(&rule, "rule", "", "rule ID")
	cmd.Flags().StringVar(&day, "date", "", "activity date (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func reviewActivityCmd(approve bool) *cobra.Command {
	var reviewer string

	use, short := "reject <id>", "Reject an activity claim"
	if approve {
		use, short = "approve <id>", "Approve an activity claim and credit its value"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if !approve {
				if err := a.approvals.RejectActivity(cmd.Context(), reviewer, args[0]); err != nil {
					return err
				}
				a.println(cli.FormatSuccess("Rejected activity " + args[0]))
				return nil
			}

			result, err := a.approvals.ApproveActivity(cmd.Context(), reviewer, args[0])
			if err != nil {
				return err
			}
			a.printMutation("Approved activity, ledger entry", result)
			return nil
		}),
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "admin reviewing the claim")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func rescuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescues",
		Short: "Request and review point redemptions",
	}

	cmd.AddCommand(listRescuesCmd())
	cmd.AddCommand(requestRescueCmd())
	cmd.AddCommand(reviewRescueCmd(true))
	cmd.AddCommand(reviewRescueCmd(false))

	return cmd
}

func listRescuesCmd() *cobra.Command {
	var filter service.RequestFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rescue requests, newest first",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			rescues, err := a.store.ListRescues(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list rescues: %w", err)
			}
			if len(rescues) == 0 {
				a.println(cli.SubtleStyle.Render("No rescues found."))
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("DATE"),
				cli.TableHeaderStyle.Render("USER"),
				cli.TableHeaderStyle.Render("PRODUCT"),
				cli.TableHeaderStyle.Render("VALUE"),
				cli.TableHeaderStyle.Render("STATUS"),
			}, "\t"))
			for _, r := range rescues {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.UserID, r.Product, r.Value, r.Status)
			}
			return w.Flush()
		}),
	}

	requestFilterFlags(cmd, &filter)
	return cmd
}

func requestRescueCmd() *cobra.Command {
	var user, product, link, value string

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Ask to redeem points for a product",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			v, err := money.ParsePoints(value)
			if err != nil {
				return err
			}

			r, err := a.approvals.RequestRescue(cmd.Context(), user, product, link, v)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Requested %s (%s GTXips), awaiting review", r.ID, r.Value)))
			return nil
		}),
	}

	cmd.Flags().StringVar(&user, "user", "", "requesting user")
	cmd.Flags().StringVar(&product, "product", "", "product to redeem")
	cmd.Flags().StringVar(&link, "link", "", "suggested purchase link")
	cmd.Flags().StringVar(&value, "value", "", "GTXips to redeem")
	for _, name := range []string{"user", "product", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func reviewRescueCmd(approve bool) *cobra.Command {
	var reviewer string

	use, short := "reject <id>", "Reject a rescue request"
	if approve {
		use, short = "approve <id>", "Approve a rescue request and debit its value"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if !approve {
				if err := a.approvals.RejectRescue(cmd.Context(), reviewer, args[0]); err != nil {
					return err
				}
				a.println(cli.FormatSuccess("Rejected rescue " + args[0]))
				return nil
			}

			result, err := a.approvals.ApproveRescue(cmd.Context(), reviewer, args[0])
			if err != nil {
				return err
			}
			a.printMutation("Approved rescue, ledger entry", result)
			return nil
		}),
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "admin reviewing the request")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

