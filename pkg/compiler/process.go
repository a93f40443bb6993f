package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/vango-dev/islands/internal/errors"
	"github.com/vango-dev/islands/pkg/renderer"
)

// ProcessCompiler runs the component compiler as a subprocess, one process
// per Compile call. The request is written to stdin as JSON and the
// response read from stdout.
type ProcessCompiler struct {
	// Command is the executable to run (e.g. "node").
	Command string

	// Args are passed to Command (e.g. the compiler script).
	Args []string

	// Dir is the working directory; defaults to the request's project root.
	Dir string

	// Env are additional environment variables.
	Env []string
}

type processRequest struct {
	Source      string         `json:"source"`
	Filename    string         `json:"filename"`
	ProjectRoot string         `json:"projectRoot"`
	Options     processOptions `json:"options"`
}

type processOptions struct {
	HMRPort   int               `json:"hmrPort"`
	Renderers []processRenderer `json:"renderers"`
	Site      json.RawMessage   `json:"site,omitempty"`
}

type processRenderer struct {
	Name      string `json:"name,omitempty"`
	Server    string `json:"server"`
	Client    string `json:"client"`
	ClientURL string `json:"clientUrl"`
}

type processResponse struct {
	Contents string `json:"contents"`
	CSS      string `json:"css"`
	Error    *struct {
		Message string `json:"message"`
		File    string `json:"file"`
		Line    int    `json:"line"`
		Column  int    `json:"column"`
		Hint    string `json:"hint"`
	} `json:"error"`
}

// Compile implements Compiler.
func (p *ProcessCompiler) Compile(ctx context.Context, source string, req Request) (Result, error) {
	renderers, err := p.renderers(ctx, req.Options)
	if err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(processRequest{
		Source:      source,
		Filename:    req.Filename,
		ProjectRoot: req.ProjectRoot,
		Options: processOptions{
			HMRPort:   req.Options.HMRPort,
			Renderers: renderers,
			Site:      req.Options.Site,
		},
	})
	if err != nil {
		return Result{}, errors.New("E160").Wrap(err)
	}

	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Dir = p.Dir
	if cmd.Dir == "" {
		cmd.Dir = req.ProjectRoot
	}
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Stdin = bytes.NewReader(body)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var resp processResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		cause := runErr
		if cause == nil {
			cause = err
		}
		return Result{}, errors.New("E160").
			WithDetail(fmt.Sprintf("%s: %s", p.Command, output)).
			Wrap(cause)
	}

	if resp.Error != nil {
		file := resp.Error.File
		if file == "" {
			file = req.Filename
		}
		ce := errors.New("E151").WithDetail(resp.Error.Message)
		if resp.Error.Line > 0 {
			ce.WithLocation(file, resp.Error.Line, resp.Error.Column)
		}
		if resp.Error.Hint != "" {
			ce.WithSuggestion(resp.Error.Hint)
		}
		return Result{}, ce
	}

	if runErr != nil {
		return Result{}, errors.New("E160").
			WithDetail(strings.TrimSpace(stderr.String())).
			Wrap(runErr)
	}

	return Result{Code: resp.Contents, CSS: resp.CSS}, nil
}

// renderers resolves every renderer's client URL so the compiler can emit
// hydration imports without calling back into the host.
func (p *ProcessCompiler) renderers(ctx context.Context, opts Options) ([]processRenderer, error) {
	out := make([]processRenderer, len(opts.Renderers))
	if len(opts.Renderers) == 0 {
		return out, nil
	}
	if opts.ResolvePackageURL == nil {
		return nil, errors.New("E160").WithDetail("no package URL resolver configured")
	}

	set, err := renderer.Resolve(ctx, opts.Renderers, opts.ResolvePackageURL)
	if err != nil {
		return nil, err
	}
	for i, d := range opts.Renderers {
		out[i] = processRenderer{
			Name:      d.Name,
			Server:    d.Server,
			Client:    d.Client,
			ClientURL: set.ClientURLs[i],
		}
	}
	return out, nil
}
