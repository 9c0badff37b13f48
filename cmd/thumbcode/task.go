package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"thumbcode/internal/agents"
	"thumbcode/internal/orchestrator"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and manage agent tasks",
	}
	cmd.AddCommand(newTaskListCmd(), newTaskAddCmd(), newTaskShowCmd(), newTaskCancelCmd(), newTaskDiffCmd())
	return cmd
}

func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks with their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			tasks := a.manager.List()
			if len(tasks) == 0 {
				fmt.Println(gray("No tasks. Create one with 'thumbcode task add' or 'thumbcode plan'."))
				return nil
			}

			for _, task := range tasks {
				printTaskLine(task)
			}
			return nil
		},
	}
}

func printTaskLine(task *orchestrator.AgentTask) {
	assignee := string(task.Assignee)
	if assignee == "" {
		assignee = "-"
	}
	line := fmt.Sprintf("%-10s %-12s %-12s %s", task.ID, statusBadge(task.Status), assignee, task.Title)
	if len(task.DependsOn) > 0 {
		line += gray(fmt.Sprintf("  (after %s)", strings.Join(task.DependsOn, ", ")))
	}
	fmt.Println(line)
}

func newTaskAddCmd() *cobra.Command {
	var (
		description string
		assignee    string
		priority    string
		dependsOn   []string
		criteria    []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Queue a new task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			task, err := a.manager.Create(orchestrator.CreateTaskRequest{
				Type:               "agent",
				Title:              strings.Join(args, " "),
				Description:        description,
				Assignee:           orchestrator.AgentRole(assignee),
				Priority:           orchestrator.TaskPriority(priority),
				DependsOn:          dependsOn,
				AcceptanceCriteria: criteria,
			})
			if err != nil {
				return err
			}

			a.saveTasks()
			fmt.Printf("Created %s\n", bold(task.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "longer task description")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "agent role: architect, implementer, reviewer, tester")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority: low, medium, high")
	cmd.Flags().StringSliceVar(&dependsOn, "after", nil, "task ids this task depends on")
	cmd.Flags().StringSliceVar(&criteria, "criteria", nil, "acceptance criteria")
	return cmd
}

func newTaskCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a queued task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if err := a.manager.Cancel(args[0]); err != nil {
				return err
			}

			a.saveTasks()
			fmt.Printf("Cancelled %s\n", bold(args[0]))
			return nil
		},
	}
}

func newTaskDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id> <id>",
		Short: "Compare the results of two tasks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			before, err := a.manager.Get(args[0])
			if err != nil {
				return err
			}
			after, err := a.manager.Get(args[1])
			if err != nil {
				return err
			}

			summary := agents.SummarizeChange(before.ID+".."+after.ID, before.Result, after.Result)
			if !summary.Changed() {
				fmt.Println(gray("Results are identical."))
				return nil
			}
			if isTTY() {
				fmt.Print(summary.Colorize())
			} else {
				fmt.Print(summary.Unified)
			}
			fmt.Printf("\n%s, %s\n", green(fmt.Sprintf("+%d", summary.AddedLines)), red(fmt.Sprintf("-%d", summary.RemovedLines)))
			return nil
		},
	}
}

func newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			task, err := a.manager.Get(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s %s\n", bold(task.ID), statusBadge(task.Status))
			fmt.Printf("%s\n", bold(task.Title))
			if task.Assignee != "" {
				fmt.Printf("assignee:  %s\n", task.Assignee)
			}
			if task.Priority != "" {
				fmt.Printf("priority:  %s\n", task.Priority)
			}
			if len(task.DependsOn) > 0 {
				fmt.Printf("after:     %s\n", strings.Join(task.DependsOn, ", "))
			}
			if task.Description != "" {
				fmt.Printf("\n%s\n", task.Description)
			}
			if len(task.AcceptanceCriteria) > 0 {
				fmt.Println("\nAcceptance criteria:")
				for _, criterion := range task.AcceptanceCriteria {
					fmt.Printf("  - %s\n", criterion)
				}
			}
			if task.Result != "" {
				fmt.Println("\nResult:")
				fmt.Print(renderMarkdown(task.Result))
			}
			return nil
		},
	}
}
