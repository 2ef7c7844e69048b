package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gtxlabs/gtxips/internal/cli"
)

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Read in-app notifications",
	}

	var unread bool
	list := &cobra.Command{
		Use:   "list <user>",
		Short: "List a user's notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			notifications, err := a.store.ListNotifications(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list notifications: %w", err)
			}

			shown := 0
			for _, n := range notifications {
				if unread && n.Read {
					continue
				}
				marker := cli.SubtleStyle.Render("  ")
				if !n.Read {
					marker = cli.InfoStyle.Render("● ")
				}
				a.printf("%s%s  %s\n  %s\n  %s\n",
					marker, n.CreatedAt.Format("2006-01-02 15:04"), n.ID,
					cli.BoldStyle.Render(n.Title), n.Message)
				shown++
			}
			if shown == 0 {
				a.println(cli.SubtleStyle.Render("No notifications."))
			}
			return nil
		}),
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread notifications")

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.store.MarkNotificationRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Marked as read"))
			return nil
		}),
	}

	cmd.AddCommand(list, read)
	return cmd
}
