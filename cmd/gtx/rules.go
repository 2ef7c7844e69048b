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

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage reward rules",
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(updateRuleCmd())
	cmd.AddCommand(deleteRuleCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reward rules",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			rules, err := a.store.ListRules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}
			if len(rules) == 0 {
				a.println(cli.SubtleStyle.Render("No rules found."))
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("CATEGORY"),
				cli.TableHeaderStyle.Render("VALUE"),
				cli.TableHeaderStyle.Render("RECURRENCE"),
				cli.TableHeaderStyle.Render("SELF-SERVICE"),
			}, "\t"))
			for _, r := range rules {
				self := "no"
				if r.SelfService {
					self = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Category, r.Value, r.Recurrence, self)
			}
			return w.Flush()
		}),
	}
}

type ruleFlags struct {
	category, description, recurrence, value string
	selfService                              bool
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "rule category")
	cmd.Flags().StringVar(&f.description, "description", "", "what the rule rewards")
	cmd.Flags().StringVar(&f.recurrence, "recurrence", string(model.RecurrenceAdHoc), "Anual, Mensal, Única or Ad-hoc")
	cmd.Flags().StringVar(&f.value, "value", "", "GTXips granted")
	cmd.Flags().BoolVar(&f.selfService, "self-service", false, "employees may claim it themselves")
}

func (f *ruleFlags) apply(cmd *cobra.Command, r *model.Rule) error {
	flags := cmd.Flags()
	if flags.Changed("category") {
		r.Category = f.category
	}
	if flags.Changed("description") {
		r.Description = f.description
	}
	if flags.Changed("recurrence") || r.Recurrence == "" {
		r.Recurrence = model.Recurrence(f.recurrence)
	}
	if flags.Changed("value") {
		v, err := money.ParsePoints(f.value)
		if err != nil {
			return err
		}
		r.Value = v
	}
	if flags.Changed("self-service") {
		r.SelfService = f.selfService
	}
	return nil
}

func addRuleCmd() *cobra.Command {
	var f ruleFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a reward rule",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			r := &model.Rule{}
			if err := f.apply(cmd, r); err != nil {
				return err
			}
			if err := a.store.CreateRule(cmd.Context(), r); err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Created rule %s (%s)", r.Category, r.ID)))
			return nil
		}),
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func updateRuleCmd() *cobra.Command {
	var f ruleFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a reward rule",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			r, err := a.store.GetRule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := f.apply(cmd, r); err != nil {
				return err
			}
			if err := a.store.UpdateRule(cmd.Context(), r); err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Updated rule " + r.ID))
			return nil
		}),
	}

	f.register(cmd)
	return cmd
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reward rule",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.store.DeleteRule(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Deleted rule " + args[0]))
			return nil
		}),
	}
}
