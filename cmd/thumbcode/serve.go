package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"thumbcode/internal/observability"
	"thumbcode/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server for the mobile client",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tracer, err := observability.NewTracerProvider(observability.TracingConfig{
				Enabled:        a.cfg.Observability.TracingEnabled,
				Exporter:       a.cfg.Observability.Exporter,
				OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
				ZipkinEndpoint: a.cfg.Observability.ZipkinEndpoint,
				SampleRate:     a.cfg.Observability.SampleRate,
			})
			if err != nil {
				return err
			}
			defer func() { _ = tracer.Shutdown(context.Background()) }()

			deps := server.Deps{
				Manager:     a.manager,
				Credentials: a.store,
				GitHub:      a.githubClient(),
				Logger:      a.logger,
			}
			if deviceClient, err := a.deviceClient(); err == nil {
				deps.DeviceClient = deviceClient
			} else {
				a.logger.Warn("device flow disabled: %v", err)
			}
			if planner, err := a.planner(ctx); err == nil {
				deps.Planner = planner
			} else {
				a.logger.Warn("planning disabled: %v", err)
			}

			srv, err := server.New(a.cfg.Server, deps, a.pollerConfig())
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}
