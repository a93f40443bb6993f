// Package build compiles every component of a project for production.
//
// This package handles:
//   - Scanning the source directory for .island and .md components
//   - Compiling components in parallel through the plugin
//   - Wiring the renderer registry into the runtime helper
//   - Writing .js/.css output to disk or publishing it to S3
//   - Build manifest generation
//
// # Usage
//
//	builder := build.New(cfg, p, build.Options{Sink: build.NewDiskSink(cfg.OutputPath())})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    return err
//	}
//
//	fmt.Printf("Built %d components in %s\n", result.Components, result.Duration)
package build
