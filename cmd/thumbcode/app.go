package main

import (
	"context"
	"fmt"
	"path/filepath"

	"thumbcode/internal/agents"
	authgh "thumbcode/internal/auth/github"
	"thumbcode/internal/config"
	"thumbcode/internal/credentials"
	gh "thumbcode/internal/github"
	"thumbcode/internal/logging"
	"thumbcode/internal/orchestrator"
)

// app bundles the components the commands share.
type app struct {
	cfg       *config.Config
	logger    logging.Logger
	store     *credentials.FileStore
	manager   *orchestrator.Manager
	snapshots *orchestrator.SnapshotStore
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDir()
	}
	store, err := credentials.NewFileStore(filepath.Join(dataDir, "credentials"))
	if err != nil {
		return nil, err
	}
	snapshots, err := orchestrator.NewSnapshotStore(filepath.Join(dataDir, "tasks.json"))
	if err != nil {
		return nil, err
	}

	logger := logging.NewComponentLogger("cli")
	manager := orchestrator.NewManager(logger, orchestrator.WithTokenCounter(agents.NewTokenCounter()))
	snap, err := snapshots.Load()
	if err != nil {
		logger.Warn("Ignoring unreadable task snapshot: %v", err)
	} else if len(snap.Queue) > 0 || len(snap.Completed) > 0 {
		manager.Restore(snap)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		manager:   manager,
		snapshots: snapshots,
	}, nil
}

// saveTasks persists the queue so later CLI invocations see it.
func (a *app) saveTasks() {
	if err := a.snapshots.Save(a.manager.Snapshot()); err != nil {
		a.logger.Warn("Failed to persist tasks: %v", err)
	}
}

func (a *app) deviceClient() (*authgh.Client, error) {
	if a.cfg.GitHub.ClientID == "" {
		return nil, fmt.Errorf("github.client_id is not configured, set it in the config file or THUMBCODE_GITHUB_CLIENT_ID")
	}
	return authgh.NewClient(authgh.ClientConfig{
		ClientID:      a.cfg.GitHub.ClientID,
		Scopes:        a.cfg.GitHub.Scopes,
		DeviceCodeURL: a.cfg.GitHub.DeviceCodeURL,
		TokenURL:      a.cfg.GitHub.TokenURL,
	}, a.logger), nil
}

func (a *app) pollerConfig() authgh.PollerConfig {
	return authgh.PollerConfig{
		Interval:    a.cfg.GitHub.PollInterval,
		MaxAttempts: a.cfg.GitHub.MaxAttempts,
	}
}

func (a *app) githubClient() *gh.Client {
	tokens := func(ctx context.Context) (string, error) {
		return a.store.Retrieve(ctx, credentials.TypeGitHub)
	}
	opts := []gh.Option{}
	if a.cfg.GitHub.APIBaseURL != "" {
		opts = append(opts, gh.WithBaseURL(a.cfg.GitHub.APIBaseURL))
	}
	return gh.NewClient(tokens, a.logger, opts...)
}

// providerClient picks the first provider with a stored API key, preferring
// Anthropic.
func (a *app) providerClient(ctx context.Context) (agents.Client, error) {
	if key, err := a.store.Retrieve(ctx, credentials.TypeAnthropic); err == nil {
		return agents.NewAnthropicClient(agents.ClientConfig{
			APIKey:  key,
			BaseURL: a.cfg.Providers.Anthropic.BaseURL,
			Model:   a.cfg.Providers.Anthropic.Model,
			Timeout: a.cfg.Providers.Anthropic.Timeout,
		}, a.logger)
	}
	if key, err := a.store.Retrieve(ctx, credentials.TypeOpenAI); err == nil {
		return agents.NewOpenAIClient(agents.ClientConfig{
			APIKey:  key,
			BaseURL: a.cfg.Providers.OpenAI.BaseURL,
			Model:   a.cfg.Providers.OpenAI.Model,
			Timeout: a.cfg.Providers.OpenAI.Timeout,
		}, a.logger)
	}
	return nil, fmt.Errorf("no provider API key stored, add one with 'thumbcode auth key anthropic' or 'thumbcode auth key openai'")
}

func (a *app) planner(ctx context.Context) (*agents.Planner, error) {
	client, err := a.providerClient(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := agents.DefaultRoles()
	if err != nil {
		return nil, err
	}
	return agents.NewPlanner(client, roles, a.logger), nil
}

func (a *app) executor(ctx context.Context) (*agents.TaskExecutor, error) {
	client, err := a.providerClient(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := agents.DefaultRoles()
	if err != nil {
		return nil, err
	}
	return agents.NewTaskExecutor(client, roles, a.logger), nil
}

func (a *app) runner(executor orchestrator.Executor) *orchestrator.Runner {
	return orchestrator.NewRunner(a.manager, executor, orchestrator.RunnerConfig{
		MaxWorkers: a.cfg.Orchestrator.MaxWorkers,
	}, a.logger)
}
