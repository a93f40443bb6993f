package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/islands/pkg/compiler"
	"github.com/vango-dev/islands/pkg/plugin"
)

func compileCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a single component",
		Long: `Compile one .island or .md component and print the generated
module. With --out, the .js (and .css, if any) are written to that
directory instead.

Examples:
  islands compile src/pages/index.island
  islands compile src/posts/hello.md --out=tmp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			p := newPipeline(cmd.Context(), cfg, newLogger())
			return runCompile(cmd.Context(), p, path, outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write outputs to this directory")

	return cmd
}

func runCompile(ctx context.Context, p *plugin.Plugin, path, outDir string) error {
	out, err := p.Load(ctx, plugin.LoadArgs{FilePath: path})
	if err != nil {
		return err
	}

	if outDir == "" {
		code, _ := out.Text(compiler.ExtScript)
		fmt.Println(code)
		if css, ok := out.Text(compiler.ExtStylesheet); ok {
			fmt.Println("/* " + compiler.ExtStylesheet + " */")
			fmt.Println(css)
		}
		return nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, ext := range []string{compiler.ExtScript, compiler.ExtStylesheet} {
		text, ok := out.Text(ext)
		if !ok {
			continue
		}
		target := filepath.Join(outDir, base+ext)
		if err := os.WriteFile(target, []byte(text), 0644); err != nil {
			return err
		}
		success("Wrote %s", target)
	}
	return nil
}
