package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/islands/internal/dev"
)

func devCmd() *cobra.Command {
	var (
		port    int
		hmrPort int
		host    string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with hot module reload.

The dev server builds the project, watches the source and runtime
directories, recompiles what changed and notifies connected browsers
on the HMR port.

Examples:
  islands dev
  islands dev --hmr-port=4000
  islands dev --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(port, hmrPort, host)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to serve output and metrics on (default from islands.json)")
	cmd.Flags().IntVar(&hmrPort, "hmr-port", 0, "Port for HMR notifications (default from islands.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from islands.json)")

	return cmd
}

func runDev(port, hmrPort int, host string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if port > 0 {
		cfg.Dev.Port = port
	}
	if hmrPort > 0 {
		cfg.Dev.HMRPort = hmrPort
	}
	if host != "" {
		cfg.Dev.Host = host
	}

	printBanner()
	fmt.Println("  dev")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n\n  Shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := newLogger()
	var server *dev.Server
	server = dev.NewServer(dev.ServerOptions{
		Config:   cfg,
		Pipeline: newPipeline(ctx, cfg, logger),
		Logger:   logger,
		OnRebuild: func(changes []dev.Change, err error) {
			if err != nil {
				warn("Rebuild failed (%d changes)", len(changes))
				return
			}
			success("Rebuilt %d changes, %d browsers notified", len(changes), server.Reload().ClientCount())
		},
	})

	info("Serving %s on http://%s", cfg.Build.Output, cfg.DevAddress())
	info("HMR on ws://%s%s", cfg.HMRAddress(), dev.HMRPath)
	fmt.Println()

	return server.Start(ctx)
}
