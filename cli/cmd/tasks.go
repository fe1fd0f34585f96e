package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JoaoG250/micro-do/cli/internal/client"
	"github.com/JoaoG250/micro-do/cli/pkg/output"
	"github.com/JoaoG250/micro-do/common/contracts"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task"},
	Short:   "Task commands",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}

		q := client.TaskQuery{}
		q.Page, _ = cmd.Flags().GetInt("page")
		q.Limit, _ = cmd.Flags().GetInt("limit")
		q.Status, _ = cmd.Flags().GetString("status")
		q.Priority, _ = cmd.Flags().GetString("priority")
		q.Search, _ = cmd.Flags().GetString("search")
		q.AssigneeID, _ = cmd.Flags().GetString("assignee")
		if mine, _ := cmd.Flags().GetBool("mine"); mine {
			p, _ := cfg.GetProfile(profileName(cmd))
			q.AssigneeID = p.UserID
		}

		page, err := gw.ListTasks(cmd.Context(), q)
		if err != nil {
			return err
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		if err := out.Value(page, func(t *output.Table) {
			t.Header("ID", "TITLE", "STATUS", "PRIORITY", "DUE", "ASSIGNEES")
			for _, task := range page.Content {
				t.AddRow(task.ID, task.Title, string(task.Status), string(task.Priority), formatDue(task.DueDate), strconv.Itoa(len(task.AssigneeIDs)))
			}
		}); err != nil {
			return err
		}
		if out.Format() == output.FormatTable {
			out.Info("\nPage %d of %d (%d tasks)", page.Number, page.TotalPages, page.TotalElements)
		}
		return nil
	},
}

var tasksGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}
		task, err := gw.GetTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		return out.Value(task, func(t *output.Table) {
			t.Header("FIELD", "VALUE")
			t.AddRow("ID", task.ID)
			t.AddRow("Title", task.Title)
			if task.Description != nil {
				t.AddRow("Description", *task.Description)
			}
			t.AddRow("Status", string(task.Status))
			t.AddRow("Priority", string(task.Priority))
			t.AddRow("Due", formatDue(task.DueDate))
			t.AddRow("Assignees", strings.Join(task.AssigneeIDs, ", "))
			t.AddRow("Updated", task.UpdatedAt.Format(time.RFC3339))
		})
	},
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := contracts.CreateTaskRequest{}
		req.Title, _ = cmd.Flags().GetString("title")
		if d, _ := cmd.Flags().GetString("description"); d != "" {
			req.Description = &d
		}
		priority, _ := cmd.Flags().GetString("priority")
		req.Priority = contracts.Priority(strings.ToUpper(priority))
		status, _ := cmd.Flags().GetString("status")
		req.Status = contracts.Status(strings.ToUpper(status))
		req.AssigneeIDs, _ = cmd.Flags().GetStringSlice("assignee")
		if due, _ := cmd.Flags().GetString("due"); due != "" {
			t, err := time.Parse(time.DateOnly, due)
			if err != nil {
				return fmt.Errorf("invalid --due %q, want YYYY-MM-DD", due)
			}
			req.DueDate = &t
		}
		if err := req.Validate(); err != nil {
			return err
		}

		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}
		task, err := gw.CreateTask(cmd.Context(), req)
		if err != nil {
			return err
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		if out.Format() != output.FormatTable {
			return out.Value(task, nil)
		}
		out.Success("Created task %s", task.ID)
		return nil
	},
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}
		if err := gw.DeleteTask(cmd.Context(), args[0]); err != nil {
			return err
		}
		out, err := printer(cmd)
		if err != nil {
			return err
		}
		out.Success("Deleted task %s", args[0])
		return nil
	},
}

var tasksCommentCmd = &cobra.Command{
	Use:   "comment <task-id> <content>",
	Short: "Comment on a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}
		comment, err := gw.AddComment(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		out, err := printer(cmd)
		if err != nil {
			return err
		}
		if out.Format() != output.FormatTable {
			return out.Value(comment, nil)
		}
		out.Success("Added comment %s", comment.ID)
		return nil
	},
}

var usersSearchCmd = &cobra.Command{
	Use:   "users [search]",
	Short: "Search users for assignment",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}
		search := ""
		if len(args) == 1 {
			search = args[0]
		}
		limit, _ := cmd.Flags().GetInt("limit")

		users, err := gw.SearchUsers(cmd.Context(), search, limit)
		if err != nil {
			return err
		}
		out, err := printer(cmd)
		if err != nil {
			return err
		}
		return out.Value(users, func(t *output.Table) {
			t.Header("ID", "USERNAME")
			for _, u := range users {
				t.AddRow(u.ID, u.Username)
			}
		})
	},
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.Format(time.DateOnly)
}

func init() {
	rootCmd.AddCommand(tasksCmd, usersSearchCmd)
	tasksCmd.AddCommand(tasksListCmd, tasksGetCmd, tasksCreateCmd, tasksDeleteCmd, tasksCommentCmd)

	tasksListCmd.Flags().Int("page", 1, "Page number")
	tasksListCmd.Flags().Int("limit", contracts.DefaultPageSize, "Page size")
	tasksListCmd.Flags().String("status", "", "Filter by status")
	tasksListCmd.Flags().String("priority", "", "Filter by priority")
	tasksListCmd.Flags().String("search", "", "Match title or description")
	tasksListCmd.Flags().String("assignee", "", "Filter by assignee id")
	tasksListCmd.Flags().Bool("mine", false, "Only tasks assigned to the logged in user")

	tasksCreateCmd.Flags().String("title", "", "Task title")
	tasksCreateCmd.Flags().String("description", "", "Task description")
	tasksCreateCmd.Flags().String("priority", "", "LOW, MEDIUM, HIGH or URGENT")
	tasksCreateCmd.Flags().String("status", "", "TODO, IN_PROGRESS, REVIEW or DONE")
	tasksCreateCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	tasksCreateCmd.Flags().StringSlice("assignee", nil, "Assignee user id (repeatable)")
	_ = tasksCreateCmd.MarkFlagRequired("title")

	usersSearchCmd.Flags().Int("limit", 10, "Maximum results")
}
