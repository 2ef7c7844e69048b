package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gtxlabs/gtxips/internal/cli"
	"github.com/gtxlabs/gtxips/internal/storage"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage database checkpoints",
		Long: `Create, list, restore, and delete database checkpoints.

Checkpoints save the current state of the database before risky changes so
it can be restored later.`,
		Example: `  # Create a checkpoint before closing the month
  gtx checkpoint create --tag "pre-2024-03"

  # List all checkpoints
  gtx checkpoint list

  # Restore from a checkpoint
  gtx checkpoint restore pre-2024-03`,
	}

	cmd.AddCommand(createCheckpointCmd())
	cmd.AddCommand(listCheckpointsCmd())
	cmd.AddCommand(restoreCheckpointCmd())
	cmd.AddCommand(deleteCheckpointCmd())

	return cmd
}

// withCheckpoints runs fn with a checkpoint manager for the configured database.
func withCheckpoints(fn func(cmd *cobra.Command, args []string, a *app, m *storage.CheckpointManager) error) func(*cobra.Command, []string) error {
	return withApp(func(cmd *cobra.Command, args []string, a *app) error {
		manager, err := a.store.NewCheckpointManager()
		if err != nil {
			return fmt.Errorf("failed to create checkpoint manager: %w", err)
		}
		return fn(cmd, args, a, manager)
	})
}

func createCheckpointCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		RunE: withCheckpoints(func(cmd *cobra.Command, _ []string, a *app, m *storage.CheckpointManager) error {
			info, err := m.Create(cmd.Context(), tag, description)
			if err != nil {
				return fmt.Errorf("failed to create checkpoint: %w", err)
			}

			a.printf("%s Created checkpoint %s (%s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.ID),
				formatFileSize(info.FileSize))
			if info.Description != "" {
				a.printf("  Description: %s\n", info.Description)
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Checkpoint tag/name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the checkpoint")
	return cmd
}

func listCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		RunE: withCheckpoints(func(cmd *cobra.Command, _ []string, a *app, m *storage.CheckpointManager) error {
			checkpoints, err := m.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list checkpoints: %w", err)
			}
			if len(checkpoints) == 0 {
				a.println(cli.SubtitleStyle.Render("No checkpoints found."))
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.TableHeaderStyle.Render("NAME"),
				cli.TableHeaderStyle.Render("CREATED"),
				cli.TableHeaderStyle.Render("SIZE"),
				cli.TableHeaderStyle.Render("PROFILES"),
				cli.TableHeaderStyle.Render("LEDGER"),
				cli.TableHeaderStyle.Render("MONTHS"),
				cli.TableHeaderStyle.Render("TYPE"),
			}, "\t"))
			for _, cp := range checkpoints {
				typeLabel := "manual"
				if cp.IsAuto {
					typeLabel = "auto"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					cli.InfoStyle.Render(cp.ID),
					formatRelativeTime(cp.CreatedAt),
					formatFileSize(cp.FileSize),
					cp.Profiles,
					cp.Transactions,
					cp.FinancialRecords,
					cli.SubtitleStyle.Render(typeLabel))
			}
			return w.Flush()
		}),
	}
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Restore database from a checkpoint",
		Long:  `Replace the current database with a checkpoint.`,
		Args:  cobra.ExactArgs(1),
		RunE: withCheckpoints(func(cmd *cobra.Command, args []string, a *app, m *storage.CheckpointManager) error {
			ctx := cmd.Context()
			id := args[0]

			info, err := m.GetCheckpointInfo(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get checkpoint info: %w", err)
			}

			if !force {
				a.printf("%s This will replace your current database with checkpoint %s.\n",
					cli.WarningStyle.Render(cli.WarningIcon),
					cli.InfoStyle.Render(id))
				a.printf("  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
				if info.Description != "" {
					a.printf("  Description: %s\n", info.Description)
				}

				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), a.out, "Continue?")
				if err != nil {
					return err
				}
				if !ok {
					a.println(cli.SubtitleStyle.Render("Restore cancelled."))
					return nil
				}
			}

			if err := m.Restore(ctx, id); err != nil {
				return fmt.Errorf("failed to restore checkpoint: %w", err)
			}

			a.printf("%s Restored from checkpoint %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(id))
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

func deleteCheckpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: withCheckpoints(func(cmd *cobra.Command, args []string, a *app, m *storage.CheckpointManager) error {
			if err := m.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete checkpoint: %w", err)
			}
			a.printf("%s Deleted checkpoint %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(args[0]))
			return nil
		}),
	}
}

