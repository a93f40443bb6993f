// Package dev provides the development server and hot module reload.
//
// The server runs a full build on start, then polls the source and runtime
// directories. An edited component is recompiled on its own; a runtime edit
// or a removed component triggers a full build. Browsers are notified over
// a websocket on the configured HMR port.
//
// # Usage
//
//	srv := dev.NewServer(dev.ServerOptions{
//	    Config:   cfg,
//	    Pipeline: p,
//	})
//
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// # HMR Protocol
//
// Browsers connect to /_islands/hmr. Messages are JSON-encoded:
//
//	{"type": "reload", "file": "src/pages/index.island"} // Component rebuilt
//	{"type": "reload"}                                   // Full reload
//	{"type": "error", "file": "...", "error": "..."}     // Shows error overlay
//	{"type": "clear"}                                    // Clears error overlay
package dev
