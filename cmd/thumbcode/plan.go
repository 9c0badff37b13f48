package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <goal>",
		Short: "Ask the architect to break a goal into tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			planner, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}

			goal := strings.Join(args, " ")
			fmt.Println(gray("Planning..."))
			tasks, err := planner.Plan(cmd.Context(), a.manager, goal)
			if err != nil {
				return err
			}

			a.saveTasks()
			fmt.Printf("Planned %d task(s):\n\n", len(tasks))
			for _, task := range tasks {
				printTaskLine(task)
			}
			fmt.Printf("\nRun them with %s\n", bold("thumbcode run"))
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute every ready task until the queue drains",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			executor, err := a.executor(cmd.Context())
			if err != nil {
				return err
			}

			plan := a.manager.ExecutionPlan()
			if len(plan.Ready) == 0 && len(plan.Waiting) == 0 {
				fmt.Println(gray("Nothing to run."))
				return nil
			}

			runErr := a.runner(executor).Run(cmd.Context())
			a.saveTasks()
			if runErr != nil {
				return runErr
			}

			metrics := a.manager.Metrics()
			fmt.Printf("\n%s %d completed, %d failed, %d tokens used\n",
				green("Done:"), metrics.TasksCompleted, metrics.TasksFailed, metrics.TokensUsed)
			return nil
		},
	}
}
