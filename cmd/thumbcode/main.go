// Command thumbcode is the companion server and CLI for the ThumbCode
// mobile client: it manages agent tasks, GitHub sign-in, and previews.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"thumbcode/internal/config"
	"thumbcode/internal/logging"
)

var (
	configFile string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:   "thumbcode",
		Short: "Orchestrate AI coding agents from your phone",
		Long: `thumbcode runs the backend for the ThumbCode mobile client:
a task orchestrator for AI coding agents, GitHub device-flow sign-in,
and a sandboxed HTML/CSS preview service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $HOME/.thumbcode/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(),
		newAuthCmd(),
		newTaskCmd(),
		newPlanCmd(),
		newRunCmd(),
		newChatCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorBadge(err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logging.Configure(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	return cfg, nil
}
