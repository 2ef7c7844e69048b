package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gtxlabs/gtxips/internal/cli"
	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/model"
	"github.com/gtxlabs/gtxips/internal/service"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage employee profiles",
	}

	cmd.AddCommand(listUsersCmd())
	cmd.AddCommand(addUserCmd())
	cmd.AddCommand(showUserCmd())
	cmd.AddCommand(deleteUserCmd())

	return cmd
}

func listUsersCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles with their balances",
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			var (
				profiles []model.Profile
				err      error
			)
			if role != "" {
				profiles, err = a.store.ListProfilesByRole(cmd.Context(), model.Role(role))
			} else {
				profiles, err = a.store.ListProfiles(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}

			if len(profiles) == 0 {
				a.println(cli.SubtleStyle.Render("No profiles found."))
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("NAME"),
				cli.TableHeaderStyle.Render("ROLE"),
				cli.TableHeaderStyle.Render("BALANCE"),
			}, "\t"))
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Role, p.Balance)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().StringVar(&role, "role", "", "only list profiles with this role (admin, user)")
	return cmd
}

func addUserCmd() *cobra.Command {
	var p model.Profile
	var role, birth, hire string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or update a profile",
		Long: `Create a profile, or update the details of an existing one when --id
matches. The balance is never set here: it only changes through the ledger.`,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			p.Role = model.Role(role)

			var err error
			if p.BirthDate, err = parseOptionalDate(birth); err != nil {
				return fmt.Errorf("invalid --birth: %w", err)
			}
			if p.HireDate, err = parseOptionalDate(hire); err != nil {
				return fmt.Errorf("invalid --hire: %w", err)
			}

			if err := a.store.SaveProfile(cmd.Context(), &p); err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Saved profile %s (%s)", p.Name, p.ID)))
			return nil
		}),
	}

	cmd.Flags().StringVar(&p.ID, "id", "", "profile ID (generated if empty)")
	cmd.Flags().StringVar(&p.Name, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "role (admin, user)")
	cmd.Flags().StringVar(&p.JobTitle, "job", "", "job title")
	cmd.Flags().StringVar(&p.PhotoURL, "photo", "", "photo URL")
	cmd.Flags().StringVar(&birth, "birth", "", "birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&hire, "hire", "", "hire date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func showUserCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a profile, its balance and its latest ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			p, err := a.store.GetProfile(ctx, args[0])
			if err != nil {
				return err
			}

			entries, err := a.store.ListTransactions(ctx, service.TransactionFilter{UserID: p.ID})
			if err != nil {
				return fmt.Errorf("failed to load ledger: %w", err)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Role:    %s\n", p.Role)
			if p.JobTitle != "" {
				fmt.Fprintf(&b, "Job:     %s\n", p.JobTitle)
			}
			fmt.Fprintf(&b, "Balance: %s GTXips\n", p.Balance)
			for _, e := range entries {
				fmt.Fprintf(&b, "\n%s  %s  %s", e.Date, cli.FormatSigned(e.Effect().String(), e.Effect().IsNegative()), e.Reason)
			}
			a.println(cli.RenderBox(p.Name, b.String()))
			return nil
		}),
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of ledger entries to show (0 for all)")
	return cmd
}

func deleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile without ledger history",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			err := a.store.DeleteProfile(cmd.Context(), args[0])
			if errors.Is(err, common.ErrReferenced) {
				return common.NewUserError("profile still has ledger entries or requests", err)
			}
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Deleted profile " + args[0]))
			return nil
		}),
	}
}

