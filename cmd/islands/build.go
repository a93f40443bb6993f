package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/islands/internal/build"
)

func buildCmd() *cobra.Command {
	var (
		output      string
		clean       bool
		concurrency int
		bucket      string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for production",
		Long: `Compile every component and wire the runtime helper.

Outputs mirror the source tree: src/pages/index.island becomes
pages/index.js (and pages/index.css when the component has styles).
A manifest.json maps every source to the files written for it.

Examples:
  islands build
  islands build --output=public
  islands build --publish=my-site-bucket`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(output, clean, concurrency, bucket)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from islands.json)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clean output directory before build")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Parallel compiles (default: number of CPUs)")
	cmd.Flags().StringVar(&bucket, "publish", "", "Publish to this S3 bucket instead of the output directory")

	return cmd
}

func runBuild(output string, clean bool, concurrency int, bucket string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if output != "" {
		cfg.Build.Output = output
	}
	if concurrency > 0 {
		cfg.Build.Concurrency = concurrency
	}
	if bucket != "" {
		cfg.Build.Publish.Bucket = bucket
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := newLogger()
	builder := build.New(cfg, newPipeline(ctx, cfg, logger), build.Options{
		Sink:   build.SinkFor(cfg),
		Logger: logger,
		OnProgress: func(step string) {
			info("%s", step)
		},
	})

	if clean && cfg.Build.Publish.Bucket == "" {
		info("Cleaning output directory...")
		if err := builder.Clean(); err != nil {
			return err
		}
	}

	fmt.Println("  Building for production...")
	fmt.Println()

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	success("Built %d components in %s", result.Components, result.Duration.Round(time.Millisecond))
	fmt.Println()
	if cfg.Build.Publish.Bucket != "" {
		fmt.Printf("  Published to s3://%s/%s\n", cfg.Build.Publish.Bucket, cfg.Build.Publish.Prefix)
	} else {
		fmt.Printf("  Output: %s/\n", cfg.Build.Output)
	}
	printManifest(result.Manifest)
	fmt.Println()

	return nil
}

// printManifest lists the written files in source order.
func printManifest(manifest map[string][]string) {
	sources := make([]string, 0, len(manifest))
	for src := range manifest {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	for _, src := range sources {
		for _, out := range manifest[src] {
			fmt.Printf("    %s\n", out)
		}
	}
}
