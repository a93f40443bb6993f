package build

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/islands/internal/config"
	"github.com/vango-dev/islands/internal/errors"
	"github.com/vango-dev/islands/pkg/compiler"
	"github.com/vango-dev/islands/pkg/header"
	"github.com/vango-dev/islands/pkg/plugin"
)

// RuntimeOutputDir is where runtime modules are written inside the output.
const RuntimeOutputDir = "_islands/runtime"

// ManifestFile is the name of the build manifest.
const ManifestFile = "manifest.json"

// Pipeline is the part of the plugin the builder drives.
type Pipeline interface {
	Transform(ctx context.Context, args plugin.TransformArgs) (string, bool, error)
	Load(ctx context.Context, args plugin.LoadArgs) (compiler.Output, error)
}

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Components is the number of compiled components.
	Components int

	// Manifest maps each source (relative to the project) to the outputs
	// written for it (relative to the sink).
	Manifest map[string][]string
}

// Options configures the builder.
type Options struct {
	// Sink receives the output files.
	Sink Sink

	// Concurrency caps parallel compiles (0 = number of CPUs).
	Concurrency int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder handles production builds.
type Builder struct {
	config   *config.Config
	pipeline Pipeline
	options  Options
}

// New creates a new builder.
func New(cfg *config.Config, p Pipeline, options Options) *Builder {
	if options.Concurrency <= 0 {
		options.Concurrency = cfg.Build.Concurrency
	}
	if options.Concurrency <= 0 {
		options.Concurrency = runtime.NumCPU()
	}
	if options.Sink == nil {
		options.Sink = NewDiskSink(cfg.OutputPath())
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Builder{
		config:   cfg,
		pipeline: p,
		options:  options,
	}
}

// Build compiles every component and runtime module. A component that fails
// does not stop the others; all failures are returned together.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{Manifest: make(map[string][]string)}

	b.progress("Scanning components...")
	components, err := Scan(b.config.SrcPath())
	if err != nil {
		return nil, errors.New("E150").WithDetail(b.config.SrcPath()).Wrap(err)
	}

	b.progress("Compiling components...")
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.Concurrency)

	for _, path := range components {
		g.Go(func() error {
			written, err := b.CompileFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.options.Logger.Error("component failed", "file", path, "error", err)
				errs = append(errs, err)
				return nil
			}
			result.Manifest[b.rel(path)] = written
			result.Components++
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.progress("Wiring runtime...")
	if err := b.buildRuntime(ctx, result); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return result, stderrors.Join(errs...)
	}

	b.progress("Writing manifest...")
	if err := b.writeManifest(ctx, result.Manifest); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// CompileFile compiles one component and writes its outputs. It returns the
// sink paths written.
func (b *Builder) CompileFile(ctx context.Context, path string) ([]string, error) {
	out, err := b.pipeline.Load(ctx, plugin.LoadArgs{FilePath: path})
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(b.config.SrcPath(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	base := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	var written []string
	for _, ext := range []string{compiler.ExtScript, compiler.ExtStylesheet} {
		text, ok := out.Text(ext)
		if !ok {
			continue
		}
		target := base + ext
		if err := b.options.Sink.Put(ctx, target, []byte(text)); err != nil {
			return written, errors.New("E170").WithDetail(target).Wrap(err)
		}
		written = append(written, target)
	}
	return written, nil
}

// buildRuntime passes every runtime module through the plugin's transform
// and writes it under RuntimeOutputDir. The helper module is tagged here,
// where it is produced.
func (b *Builder) buildRuntime(ctx context.Context, result *Result) error {
	dir := b.config.RuntimePath()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		b.options.Logger.Debug("no runtime directory", "dir", dir)
		return nil
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".js" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return errors.New("E150").WithDetail(path).Wrap(err)
		}

		var tags header.Tag
		if filepath.Base(path) == header.RuntimeHelperFile {
			tags |= header.TagRuntimeHelper
		}

		contents := string(data)
		replaced, ok, err := b.pipeline.Transform(ctx, plugin.TransformArgs{
			Contents: contents,
			ID:       path,
			FileExt:  ".js",
			Tags:     tags,
		})
		if err != nil {
			return err
		}
		if ok {
			contents = replaced
		}

		rel, _ := filepath.Rel(dir, path)
		target := RuntimeOutputDir + "/" + filepath.ToSlash(rel)
		if err := b.options.Sink.Put(ctx, target, []byte(contents)); err != nil {
			return errors.New("E170").WithDetail(target).Wrap(err)
		}
		result.Manifest[b.rel(path)] = []string{target}
		return nil
	})
}

func (b *Builder) writeManifest(ctx context.Context, manifest map[string][]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := b.options.Sink.Put(ctx, ManifestFile, append(data, '\n')); err != nil {
		return errors.New("E170").WithDetail(ManifestFile).Wrap(err)
	}
	return nil
}

// rel returns path relative to the project directory, slash separated.
func (b *Builder) rel(path string) string {
	rel, err := filepath.Rel(b.config.Dir(), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// Clean removes the local build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.OutputPath())
}

// IsComponent reports whether path has a component source extension.
func IsComponent(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case compiler.ExtIsland, compiler.ExtMarkdown:
		return true
	}
	return false
}

// Scan returns every component under dir in lexical order. Hidden
// directories and node_modules are skipped. A missing dir yields no files.
func Scan(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsComponent(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
