package compiler

import (
	"context"
	"encoding/json"
	"os"

	"github.com/vango-dev/islands/internal/errors"
	"github.com/vango-dev/islands/pkg/renderer"
)

// Output extensions.
const (
	ExtScript     = ".js"
	ExtStylesheet = ".css"
)

// Source extensions the compiler accepts.
const (
	ExtIsland   = ".island"
	ExtMarkdown = ".md"
)

// Options is the configuration of a single compile call. It is built once
// per call and not modified afterwards.
type Options struct {
	// HMRPort is the port compiled components connect to for live updates.
	HMRPort int

	// ResolvePackageURL maps module references to browser URLs.
	ResolvePackageURL renderer.URLResolver

	// Renderers is the ordered renderer registry.
	Renderers []renderer.Descriptor

	// ProjectRoot is the absolute project directory.
	ProjectRoot string

	// Site is the opaque site configuration.
	Site json.RawMessage

	// Filename is the component being compiled.
	Filename string
}

// Request is everything a Compiler receives besides the source text.
type Request struct {
	Options     Options
	Filename    string
	ProjectRoot string
}

// Result is what a Compiler produces. An empty CSS means the component has
// no stylesheet.
type Result struct {
	Code string
	CSS  string
}

// Compiler compiles component source text.
type Compiler interface {
	Compile(ctx context.Context, source string, req Request) (Result, error)
}

// Func adapts a function to Compiler.
type Func func(ctx context.Context, source string, req Request) (Result, error)

// Compile calls f.
func (f Func) Compile(ctx context.Context, source string, req Request) (Result, error) {
	return f(ctx, source, req)
}

// Entry is one produced file. Scripts carry Code, stylesheets Contents.
type Entry struct {
	Code     string `json:"code,omitempty"`
	Contents string `json:"contents,omitempty"`
}

// Output maps produced extensions to their entries.
type Output map[string]Entry

// Text returns the produced text for ext.
func (o Output) Text(ext string) (string, bool) {
	e, ok := o[ext]
	if !ok {
		return "", false
	}
	if ext == ExtScript {
		return e.Code, true
	}
	return e.Contents, true
}

// Adapter loads components through a Compiler.
type Adapter struct {
	Compiler Compiler
}

// Load reads path, compiles it with opts and maps the result. Errors from
// the compiler are returned as-is.
func (a Adapter) Load(ctx context.Context, path string, opts Options) (Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E150").WithDetail(path).Wrap(err)
	}

	result, err := a.Compiler.Compile(ctx, string(data), Request{
		Options:     opts,
		Filename:    path,
		ProjectRoot: opts.ProjectRoot,
	})
	if err != nil {
		return nil, err
	}

	return MapResult(result), nil
}

// MapResult converts a Result into an Output. The stylesheet entry is only
// present when the result carries CSS.
func MapResult(r Result) Output {
	out := Output{
		ExtScript: {Code: r.Code},
	}
	if r.CSS != "" {
		out[ExtStylesheet] = Entry{Contents: r.CSS}
	}
	return out
}
