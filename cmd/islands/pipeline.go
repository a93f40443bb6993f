package main

import (
	"context"
	"log/slog"

	"github.com/vango-dev/islands/internal/config"
	"github.com/vango-dev/islands/pkg/compiler"
	"github.com/vango-dev/islands/pkg/middleware"
	"github.com/vango-dev/islands/pkg/plugin"
	"github.com/vango-dev/islands/pkg/renderer"
)

// newPipeline wires the plugin from islands.json and applies the dev
// options the way a host build tool would.
func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) *plugin.Plugin {
	p := plugin.New(plugin.Options{
		ProjectRoot: cfg.Dir(),
		Renderers:   cfg.Renderers,
		Resolver:    renderer.PackageResolver{Prefix: cfg.Packages.Prefix},
		Site:        cfg.Site,
		Compiler: &compiler.ProcessCompiler{
			Command: cfg.Compiler.Command,
			Args:    cfg.Compiler.Args,
			Dir:     cfg.Dir(),
			Env:     cfg.Compiler.Env,
		},
		Logger: logger,
		Observer: middleware.Chain(
			middleware.Prometheus(),
			middleware.OpenTelemetry(),
		),
	})

	p.Config(ctx, plugin.HostConfig{
		Root:       cfg.Dir(),
		DevOptions: plugin.DevOptions{HMRPort: cfg.Dev.HMRPort},
	})
	return p
}

// loadConfig loads islands.json from the working directory and validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
