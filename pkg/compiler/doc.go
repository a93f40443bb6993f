// Package compiler turns component sources into output modules by
// delegating to an external compiler.
//
// The Adapter reads a component file, hands its text and the per-call
// Options to a Compiler, and maps the Result into an Output keyed by the
// produced file extension:
//
//	out, err := compiler.Adapter{Compiler: pc}.Load(ctx, "src/pages/index.island", opts)
//	// out[".js"].Code is always set
//	// out[".css"] exists only when the component has styles
//
// ProcessCompiler is a Compiler that runs the compiler as a subprocess and
// speaks JSON over stdin/stdout.
package compiler
