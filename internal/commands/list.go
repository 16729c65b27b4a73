package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"studynote/internal/model"
	"studynote/internal/service"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List tasks",
	Long:    "List tasks with optional filters for free text, status and category",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		tasks, err := a.tasks.List(ctx)
		if err != nil {
			return fmt.Errorf("fetch tasks: %w", err)
		}

		status, _ := cmd.Flags().GetString("status")
		category, _ := cmd.Flags().GetString("category")
		filter := service.Filter{
			Text:     strings.Join(args, " "),
			Status:   model.Status(status),
			Category: model.Category(category),
		}

		matched := service.SortForList(service.ApplyFilter(tasks, filter))
		if len(matched) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		fmt.Printf("%-40s %-12s %-17s %-8s %s\n", "TITLE", "STATUS", "DUE", "PRIORITY", "CATEGORY")
		fmt.Println(strings.Repeat("-", 88))
		for _, task := range matched {
			title := task.Title
			if len(title) > 38 {
				title = title[:35] + "..."
			}
			fmt.Printf("%-40s %-12s %-17s %-8s %s\n",
				title,
				task.Status,
				task.DueDate.Format("2006-01-02 15:04"),
				task.Priority,
				task.Category)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Filter by status: todo, in-progress, done, overdue")
	listCmd.Flags().StringP("category", "c", "", "Filter by category: study, work, personal")
}
