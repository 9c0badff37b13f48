package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  <goal>       plan the goal and run the resulting tasks
  /tasks       list tasks
  /plan        show the execution plan partition
  /stats       show run statistics
  /help        this help
  /quit        exit`

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive planning and execution loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			planner, err := a.planner(cmd.Context())
			if err != nil {
				return err
			}
			executor, err := a.executor(cmd.Context())
			if err != nil {
				return err
			}

			rl, err := readline.New(cyan("thumbcode> "))
			if err != nil {
				return err
			}
			defer func() { _ = rl.Close() }()

			fmt.Println(gray("Describe a goal to plan and run it. Type /help for commands."))
			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					continue
				}
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}

				input := strings.TrimSpace(line)
				switch {
				case input == "":
					continue
				case input == "/quit" || input == "/exit":
					return nil
				case input == "/help":
					fmt.Println(chatHelp)
				case input == "/tasks":
					for _, task := range a.manager.List() {
						printTaskLine(task)
					}
				case input == "/plan":
					plan := a.manager.ExecutionPlan()
					fmt.Printf("ready:     %s\n", strings.Join(plan.Ready, ", "))
					fmt.Printf("waiting:   %s\n", strings.Join(plan.Waiting, ", "))
					fmt.Printf("blocked:   %s\n", strings.Join(plan.Blocked, ", "))
					fmt.Printf("completed: %s\n", strings.Join(plan.Completed, ", "))
				case input == "/stats":
					metrics := a.manager.Metrics()
					fmt.Printf("created %d, completed %d, failed %d, tokens %d, uptime %s\n",
						metrics.TasksCreated, metrics.TasksCompleted, metrics.TasksFailed,
						metrics.TokensUsed, metrics.Uptime.Round(1e9))
				case strings.HasPrefix(input, "/"):
					fmt.Println(errorBadge("unknown command, try /help"))
				default:
					tasks, err := planner.Plan(cmd.Context(), a.manager, input)
					if err != nil {
						fmt.Println(errorBadge(err.Error()))
						continue
					}
					fmt.Printf("Planned %d task(s), running...\n", len(tasks))
					runErr := a.runner(executor).Run(cmd.Context())
					a.saveTasks()
					if runErr != nil {
						fmt.Println(errorBadge(runErr.Error()))
						continue
					}
					for _, task := range a.manager.List() {
						if task.Status.IsTerminal() && task.Result != "" {
							fmt.Printf("\n%s %s\n", bold(task.ID), statusBadge(task.Status))
							fmt.Print(renderMarkdown(task.Result))
						}
					}
				}
			}
		},
	}
}
