package plugin

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/islands/pkg/compiler"
	"github.com/vango-dev/islands/pkg/header"
	"github.com/vango-dev/islands/pkg/middleware"
	"github.com/vango-dev/islands/pkg/renderer"
)

type captureCompiler struct {
	calls []compiler.Request
	css   string
	err   error
}

func (c *captureCompiler) Compile(ctx context.Context, source string, req compiler.Request) (compiler.Result, error) {
	c.calls = append(c.calls, req)
	if c.err != nil {
		return compiler.Result{}, c.err
	}
	return compiler.Result{Code: "/* " + source + " */", CSS: c.css}, nil
}

func testRenderers() []renderer.Descriptor {
	return []renderer.Descriptor{
		{Name: "a", Server: "A", Client: "a"},
		{Name: "b", Server: "B", Client: "b"},
	}
}

func newTestPlugin(t *testing.T, c compiler.Compiler, logs *bytes.Buffer) *Plugin {
	t.Helper()
	var logger *slog.Logger
	if logs != nil {
		logger = slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return New(Options{
		ProjectRoot: "/proj",
		Renderers:   testRenderers(),
		Resolver: renderer.ResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "/u/" + ref + ".js", nil
		}),
		Compiler: c,
		Logger:   logger,
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlugin_Contract(t *testing.T) {
	p := newTestPlugin(t, &captureCompiler{}, nil)

	if p.Name() != "islands" {
		t.Errorf("Name() = %q", p.Name())
	}
	ext := p.Extensions()
	if !reflect.DeepEqual(ext.Input, []string{".island", ".md"}) {
		t.Errorf("Input = %v", ext.Input)
	}
	if !reflect.DeepEqual(ext.Output, []string{".js", ".css"}) {
		t.Errorf("Output = %v", ext.Output)
	}
	if len(p.KnownEntrypoints()) == 0 {
		t.Error("KnownEntrypoints() is empty")
	}
	if p.Settings().HMRPort != DefaultHMRPort {
		t.Errorf("default HMRPort = %d", p.Settings().HMRPort)
	}
}

func TestPlugin_ConfigOverrideReachesCompileOptions(t *testing.T) {
	cc := &captureCompiler{}
	var logs bytes.Buffer
	p := newTestPlugin(t, cc, &logs)
	path := writeFile(t, "Card.island", "<div/>")
	ctx := context.Background()

	p.Config(ctx, HostConfig{DevOptions: DevOptions{HMRPort: "9999"}})
	if p.Settings().HMRPort != DefaultHMRPort {
		t.Fatalf("string override applied: %d", p.Settings().HMRPort)
	}
	if !strings.Contains(logs.String(), "ignoring hmr port override") {
		t.Errorf("ignored override not logged: %s", logs.String())
	}

	p.Config(ctx, HostConfig{DevOptions: DevOptions{HMRPort: 9999}})
	if _, err := p.Load(ctx, LoadArgs{FilePath: path}); err != nil {
		t.Fatal(err)
	}

	if len(cc.calls) != 1 {
		t.Fatalf("compile calls = %d", len(cc.calls))
	}
	opts := cc.calls[0].Options
	if opts.HMRPort != 9999 {
		t.Errorf("Options.HMRPort = %d, want 9999", opts.HMRPort)
	}
	if opts.Filename != path || cc.calls[0].Filename != path {
		t.Errorf("filename = %q / %q", opts.Filename, cc.calls[0].Filename)
	}
	if opts.ProjectRoot != "/proj" || cc.calls[0].ProjectRoot != "/proj" {
		t.Errorf("project root = %q", opts.ProjectRoot)
	}
	if !reflect.DeepEqual(opts.Renderers, testRenderers()) {
		t.Errorf("renderers = %+v", opts.Renderers)
	}
	if opts.ResolvePackageURL == nil {
		t.Error("resolver missing from options")
	}
}

func TestPlugin_ConfigUsesHostRootWhenUnset(t *testing.T) {
	p := New(Options{Compiler: &captureCompiler{}})
	p.Config(context.Background(), HostConfig{Root: "/host/root"})
	if got := p.CompileOptions("x").ProjectRoot; got != "/host/root" {
		t.Errorf("ProjectRoot = %q", got)
	}
}

func TestPlugin_SharedSettings(t *testing.T) {
	settings := NewSettings()
	p := New(Options{Compiler: &captureCompiler{}, Settings: settings})
	p.Config(context.Background(), HostConfig{DevOptions: DevOptions{HMRPort: 4100}})
	if settings.HMRPort != 4100 {
		t.Errorf("shared settings HMRPort = %d", settings.HMRPort)
	}
}

func TestPlugin_Load(t *testing.T) {
	t.Run("without stylesheet", func(t *testing.T) {
		p := newTestPlugin(t, &captureCompiler{}, nil)
		out, err := p.Load(context.Background(), LoadArgs{FilePath: writeFile(t, "a.md", "# hi")})
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 1 || out[".js"].Code != "/* # hi */" {
			t.Errorf("output = %+v", out)
		}
	})

	t.Run("with stylesheet", func(t *testing.T) {
		p := newTestPlugin(t, &captureCompiler{css: "h1{}"}, nil)
		out, err := p.Load(context.Background(), LoadArgs{FilePath: writeFile(t, "a.island", "x")})
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 2 || out[".css"].Contents != "h1{}" {
			t.Errorf("output = %+v", out)
		}
	})

	t.Run("compile failure", func(t *testing.T) {
		boom := stderrors.New("syntax error")
		p := newTestPlugin(t, &captureCompiler{err: boom}, nil)
		out, err := p.Load(context.Background(), LoadArgs{FilePath: writeFile(t, "a.island", "x")})
		if err != boom || out != nil {
			t.Errorf("Load() = %v, %v; want nil, boom", out, err)
		}
	})
}

func TestPlugin_Transform(t *testing.T) {
	p := newTestPlugin(t, &captureCompiler{}, nil)
	ctx := context.Background()

	out, ok, err := p.Transform(ctx, TransformArgs{Contents: "export default 1;", ID: "component.js", FileExt: ".js"})
	if err != nil || ok || out != "" {
		t.Errorf("Transform(component.js) = %q, %v, %v", out, ok, err)
	}

	original := "export const x = __renderers.length;\n"
	out, ok, err = p.Transform(ctx, TransformArgs{
		Contents: original,
		ID:       "/_islands/runtime/" + header.RuntimeHelperFile,
		FileExt:  ".js",
	})
	if err != nil || !ok {
		t.Fatalf("Transform(helper) = %v, %v", ok, err)
	}
	if !strings.HasPrefix(out, "import __renderer_0 from \"A\";\nimport __renderer_1 from \"B\";\n") {
		t.Errorf("imports out of order:\n%s", out)
	}
	if !strings.Contains(out, `let __rendererSources = ["/u/a.js", "/u/b.js"];`) {
		t.Errorf("sources missing:\n%s", out)
	}
	if !strings.HasSuffix(out, original) {
		t.Error("original contents must be the suffix")
	}
}

func TestPlugin_TransformTaggedFile(t *testing.T) {
	p := newTestPlugin(t, &captureCompiler{}, nil)
	_, ok, err := p.Transform(context.Background(), TransformArgs{ID: "virtual:helper", FileExt: ".mjs", Tags: header.TagRuntimeHelper})
	if err != nil || !ok {
		t.Errorf("tagged helper not transformed: %v, %v", ok, err)
	}
}

func TestPlugin_ObserverSeesOperations(t *testing.T) {
	var calls []middleware.Call
	obs := middleware.ObserverFunc(func(ctx context.Context, call middleware.Call, next func(context.Context) error) error {
		calls = append(calls, call)
		return next(ctx)
	})

	p := New(Options{
		Renderers: testRenderers(),
		Resolver:  renderer.PackageResolver{Prefix: "/pkg"},
		Compiler:  &captureCompiler{},
		Observer:  obs,
	})
	ctx := context.Background()
	path := writeFile(t, "a.island", "x")

	p.Config(ctx, HostConfig{})
	_, _, _ = p.Transform(ctx, TransformArgs{ID: "other.js", FileExt: ".js"})
	_, _, _ = p.Transform(ctx, TransformArgs{ID: header.RuntimeHelperFile, FileExt: ".js"})
	_, _ = p.Load(ctx, LoadArgs{FilePath: path})

	want := []middleware.Call{
		{Operation: middleware.OpConfig},
		{Operation: middleware.OpTransform, File: header.RuntimeHelperFile},
		{Operation: middleware.OpLoad, File: path},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("observed = %+v, want %+v", calls, want)
	}
}

func TestPlugin_TransformResolutionFailure(t *testing.T) {
	p := New(Options{
		Renderers: testRenderers(),
		Resolver: renderer.ResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", stderrors.New("not installed")
		}),
		Compiler: &captureCompiler{},
	})
	out, ok, err := p.Transform(context.Background(), TransformArgs{ID: header.RuntimeHelperFile, FileExt: ".js", Contents: "x"})
	if err == nil || ok || out != "" {
		t.Errorf("Transform() = %q, %v, %v; want failure", out, ok, err)
	}
}
