package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/JoaoG250/micro-do/cli/pkg/output"
	"github.com/JoaoG250/micro-do/common/contracts"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "Notification inbox commands",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		unread, _ := cmd.Flags().GetBool("unread")

		result, err := gw.ListNotifications(cmd.Context(), page, limit, unread)
		if err != nil {
			return err
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		return out.Value(result, func(t *output.Table) {
			t.Header("ID", "TYPE", "READ", "MESSAGE", "CREATED")
			for _, n := range result.Content {
				read := "no"
				if n.IsRead {
					read = "yes"
				}
				t.AddRow(n.ID, string(n.Type), read, n.Message, n.CreatedAt.Format(time.RFC3339))
			}
		})
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}
		n, err := gw.MarkRead(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := printer(cmd)
		if err != nil {
			return err
		}
		if out.Format() != output.FormatTable {
			return out.Value(n, nil)
		}
		out.Success("Marked %s as read", n.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd)

	notificationsListCmd.Flags().Int("page", 1, "Page number")
	notificationsListCmd.Flags().Int("limit", contracts.DefaultPageSize, "Page size")
	notificationsListCmd.Flags().Bool("unread", false, "Only unread notifications")
}
