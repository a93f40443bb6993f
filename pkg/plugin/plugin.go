// Package plugin exposes the transform pipeline to a host build tool.
//
// The host calls Config once, then Transform for every candidate file and
// Load for every component file:
//
//	p := plugin.New(plugin.Options{
//	    ProjectRoot: root,
//	    Renderers:   cfg.Renderers,
//	    Resolver:    renderer.PackageResolver{Prefix: cfg.Packages.Prefix},
//	    Compiler:    &compiler.ProcessCompiler{Command: "node", Args: args},
//	})
//	p.Config(ctx, plugin.HostConfig{DevOptions: plugin.DevOptions{HMRPort: 4000}})
//
//	out, err := p.Load(ctx, plugin.LoadArgs{FilePath: "src/pages/index.island"})
package plugin

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/vango-dev/islands/pkg/compiler"
	"github.com/vango-dev/islands/pkg/header"
	"github.com/vango-dev/islands/pkg/middleware"
	"github.com/vango-dev/islands/pkg/renderer"
)

// Name is the plugin name reported to the host.
const Name = "islands"

// Extensions lists the file extensions the plugin consumes and produces.
type Extensions struct {
	Input  []string
	Output []string
}

// Options configures a Plugin.
type Options struct {
	// ProjectRoot is the absolute project directory.
	ProjectRoot string

	// Renderers is the ordered renderer registry.
	Renderers []renderer.Descriptor

	// Resolver maps module references to browser URLs.
	Resolver renderer.URLResolver

	// Site is passed to the compiler untouched.
	Site json.RawMessage

	// Compiler compiles components.
	Compiler compiler.Compiler

	// Settings is the plugin-wide state; NewSettings() when nil.
	Settings *Settings

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observer wraps every operation; middleware.Noop when nil.
	Observer middleware.Observer
}

// Plugin implements the host-facing plugin contract.
type Plugin struct {
	projectRoot string
	renderers   []renderer.Descriptor
	resolver    renderer.URLResolver
	site        json.RawMessage
	settings    *Settings
	adapter     compiler.Adapter
	synthesizer header.Synthesizer
	logger      *slog.Logger
	observer    middleware.Observer
}

// New creates a Plugin.
func New(opts Options) *Plugin {
	if opts.Settings == nil {
		opts.Settings = NewSettings()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = middleware.Noop
	}

	return &Plugin{
		projectRoot: opts.ProjectRoot,
		renderers:   opts.Renderers,
		resolver:    opts.Resolver,
		site:        opts.Site,
		settings:    opts.Settings,
		adapter:     compiler.Adapter{Compiler: opts.Compiler},
		synthesizer: header.Synthesizer{Renderers: opts.Renderers, Resolver: opts.Resolver},
		logger:      opts.Logger.With("plugin", Name),
		observer:    opts.Observer,
	}
}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return Name
}

// KnownEntrypoints lists runtime modules the host should always prepare.
func (p *Plugin) KnownEntrypoints() []string {
	return []string{"islands/runtime/h.js", "islands/components/Prism.island"}
}

// Extensions reports the consumed and produced extensions.
func (p *Plugin) Extensions() Extensions {
	return Extensions{
		Input:  []string{compiler.ExtIsland, compiler.ExtMarkdown},
		Output: []string{compiler.ExtScript, compiler.ExtStylesheet},
	}
}

// Settings returns a copy of the current settings.
func (p *Plugin) Settings() Settings {
	return *p.settings
}

// Config applies the host configuration. A malformed HMR port is ignored.
func (p *Plugin) Config(ctx context.Context, host HostConfig) {
	_ = p.observer.Observe(ctx, middleware.Call{Operation: middleware.OpConfig}, func(ctx context.Context) error {
		if p.settings.Apply(host) {
			p.logger.Info("hmr port configured", "port", p.settings.HMRPort)
		} else if host.DevOptions.HMRPort != nil {
			p.logger.Debug("ignoring hmr port override",
				"value", host.DevOptions.HMRPort,
				"port", p.settings.HMRPort)
		}
		if host.Root != "" && p.projectRoot == "" {
			p.projectRoot = host.Root
		}
		return nil
	})
}

// TransformArgs is one candidate file.
type TransformArgs struct {
	Contents string
	ID       string
	FileExt  string
	Tags     header.Tag
}

// Transform returns the replacement contents and true for the runtime
// helper. Every other file yields "", false, nil.
func (p *Plugin) Transform(ctx context.Context, args TransformArgs) (string, bool, error) {
	file := header.File{ID: args.ID, Ext: args.FileExt, Contents: args.Contents, Tags: args.Tags}
	if !header.IsRuntimeHelper(file) {
		return "", false, nil
	}

	var (
		out string
		ok  bool
	)
	err := p.observer.Observe(ctx, middleware.Call{Operation: middleware.OpTransform, File: args.ID}, func(ctx context.Context) error {
		var err error
		out, ok, err = p.synthesizer.Transform(ctx, file)
		return err
	})
	if err != nil {
		return "", false, err
	}

	p.logger.Debug("runtime helper wired", "id", args.ID, "renderers", len(p.renderers))
	return out, ok, nil
}

// LoadArgs identifies the component to load.
type LoadArgs struct {
	FilePath string
}

// Load compiles the component at args.FilePath.
func (p *Plugin) Load(ctx context.Context, args LoadArgs) (compiler.Output, error) {
	var out compiler.Output
	err := p.observer.Observe(ctx, middleware.Call{Operation: middleware.OpLoad, File: args.FilePath}, func(ctx context.Context) error {
		var err error
		out, err = p.adapter.Load(ctx, args.FilePath, p.CompileOptions(args.FilePath))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompileOptions builds the options of one compile call from the current
// settings.
func (p *Plugin) CompileOptions(filename string) compiler.Options {
	return compiler.Options{
		HMRPort:           p.settings.HMRPort,
		ResolvePackageURL: p.resolver,
		Renderers:         p.renderers,
		ProjectRoot:       p.projectRoot,
		Site:              p.site,
		Filename:          filename,
	}
}
