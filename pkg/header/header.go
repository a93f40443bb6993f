// Package header injects the renderer registry into the generated runtime
// helper module.
//
// The runtime helper dispatches every component instance to a renderer. It
// relies on two top-level bindings being in scope, which this package
// prepends to the helper's compiled output:
//
//	import __renderer_0 from "@islands/renderer-vue/index.js";
//	import __renderer_1 from "@islands/renderer-react/index.js";
//	let __rendererSources = ["/_islands/pkg/@islands/renderer-vue/client.js", "/_islands/pkg/@islands/renderer-react/client.js"];
//	let __renderers = [__renderer_0, __renderer_1];
//	// original helper contents
//
// Every other file passes through untouched.
package header

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/vango-dev/islands/pkg/renderer"
)

// RuntimeHelperFile is the compiled filename of the runtime helper.
const RuntimeHelperFile = "__island_component.js"

// Binding names the runtime helper expects.
const (
	SourcesBinding   = "__rendererSources"
	RenderersBinding = "__renderers"
	aliasPrefix      = "__renderer_"
)

// Tag marks capabilities of a generated file.
type Tag uint8

const (
	// TagRuntimeHelper marks the file that consumes the renderer registry.
	TagRuntimeHelper Tag = 1 << iota
)

// Has reports whether t includes flag.
func (t Tag) Has(flag Tag) bool {
	return t&flag != 0
}

// File is a candidate for transformation.
type File struct {
	ID       string
	Ext      string
	Contents string
	Tags     Tag
}

// IsRuntimeHelper reports whether f is the runtime helper. An explicit
// TagRuntimeHelper wins; otherwise a ".js" file whose normalized ID is, or
// ends in a path segment equal to, RuntimeHelperFile matches.
func IsRuntimeHelper(f File) bool {
	if f.Tags.Has(TagRuntimeHelper) {
		return true
	}
	if f.Ext != ".js" {
		return false
	}
	id := strings.ReplaceAll(f.ID, `\`, "/")
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	return id == RuntimeHelperFile || strings.HasSuffix(id, "/"+RuntimeHelperFile)
}

// Synthesizer prepends the renderer header to the runtime helper.
type Synthesizer struct {
	Renderers []renderer.Descriptor
	Resolver  renderer.URLResolver
}

// Transform returns the new contents of f and true when f is the runtime
// helper. For any other file it returns "", false and nil.
func (s Synthesizer) Transform(ctx context.Context, f File) (string, bool, error) {
	if !IsRuntimeHelper(f) {
		return "", false, nil
	}

	set, err := renderer.Resolve(ctx, s.Renderers, s.Resolver)
	if err != nil {
		return "", false, err
	}
	return Header(set) + f.Contents, true, nil
}

// Header renders the import statements and the two registry arrays for set.
func Header(set renderer.Set) string {
	var b strings.Builder

	aliases := make([]string, len(set.ServerHandles))
	for i, handle := range set.ServerHandles {
		aliases[i] = Alias(i)
		b.WriteString("import ")
		b.WriteString(aliases[i])
		b.WriteString(" from ")
		b.WriteString(quote(handle))
		b.WriteString(";\n")
	}

	sources := make([]string, len(set.ClientURLs))
	for i, url := range set.ClientURLs {
		sources[i] = quote(url)
	}

	b.WriteString("let " + SourcesBinding + " = [")
	b.WriteString(strings.Join(sources, ", "))
	b.WriteString("];\n")

	b.WriteString("let " + RenderersBinding + " = [")
	b.WriteString(strings.Join(aliases, ", "))
	b.WriteString("];\n")

	return b.String()
}

// Alias returns the local binding of the renderer at index i.
func Alias(i int) string {
	return aliasPrefix + strconv.Itoa(i)
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
