// Package errors provides structured, actionable error messages for the
// islands transform pipeline.
//
// Every failure that leaves the pipeline carries a code (e.g. "E101") which
// maps to a registered message, a longer explanation and a documentation
// link. Errors may also carry the source location reported by the external
// compiler and a hint on how to fix the problem.
//
// # Error Categories
//
//   - resolve: a renderer module could not be resolved to a public URL
//   - compile: the external compiler rejected a component
//   - config: islands.json is missing or invalid
//   - io: reading components or writing build output failed
//
// # Usage
//
//	err := errors.New("E101").
//	    WithDetail("client module @islands/renderer-vue/client.js").
//	    Wrap(cause)
//
//	errors.PrintError(err)
package errors
