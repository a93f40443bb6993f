package dev

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/islands/internal/build"
	"github.com/vango-dev/islands/internal/config"
)

// HMRPath is the websocket endpoint browsers connect to.
const HMRPath = "/_islands/hmr"

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Pipeline compiles components and transforms runtime modules.
	Pipeline build.Pipeline

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Interval is the watcher polling interval.
	Interval time.Duration

	// OnRebuild is called after a change batch has been handled.
	OnRebuild func(changes []Change, err error)
}

// Server is the development server.
type Server struct {
	config   *config.Config
	options  ServerOptions
	builder  *build.Builder
	watcher  *Watcher
	reload   *ReloadServer
	logger   *slog.Logger
	changeCh chan Change

	mu       sync.Mutex
	running  bool
	failing  bool
	servers  []*http.Server
	onListen func(name string, addr net.Addr)
}

// NewServer creates a new development server.
func NewServer(options ServerOptions) *Server {
	cfg := options.Config
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.With("component", "dev")

	builder := build.New(cfg, options.Pipeline, build.Options{
		Sink:   build.NewDiskSink(cfg.OutputPath()),
		Logger: logger,
	})

	watcher := NewWatcher(WatcherConfig{
		Paths:    CollectWatchPaths(cfg),
		Ignore:   append(append([]string(nil), DefaultIgnore...), cfg.Dev.Ignore...),
		Interval: options.Interval,
	})

	return &Server{
		config:   cfg,
		options:  options,
		builder:  builder,
		watcher:  watcher,
		reload:   NewReloadServer(logger),
		logger:   logger,
		changeCh: make(chan Change, 64),
	}
}

// Handler returns the dev router: compiled output, metrics, health and the
// HMR socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle(HMRPath, s.reload)
	r.Handle("/*", http.FileServer(http.Dir(s.config.OutputPath())))

	return r
}

// HMRHandler returns the router served on the HMR port.
func (s *Server) HMRHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle(HMRPath, s.reload)
	return r
}

// Reload returns the HMR broadcaster.
func (s *Server) Reload() *ReloadServer {
	return s.reload
}

// Start builds the project, then watches for changes and serves until ctx
// is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("building")
	s.rebuild(ctx)

	s.watcher.OnChange(func(change Change) {
		select {
		case s.changeCh <- change:
		default:
			s.logger.Warn("change queue full, dropping", "file", change.Path)
		}
	})
	go s.watcher.Start(ctx)
	go s.processChanges(ctx)

	listeners := []struct {
		name    string
		addr    string
		handler http.Handler
	}{
		{"dev", s.config.DevAddress(), s.Handler()},
	}
	if s.config.Dev.HMRPort != s.config.Dev.Port {
		listeners = append(listeners, struct {
			name    string
			addr    string
			handler http.Handler
		}{"hmr", s.config.HMRAddress(), s.HMRHandler()})
	}

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		ln, err := net.Listen("tcp", l.addr)
		if err != nil {
			s.Stop()
			return err
		}
		srv := &http.Server{Handler: l.handler, ReadHeaderTimeout: 10 * time.Second}

		s.mu.Lock()
		s.servers = append(s.servers, srv)
		onListen := s.onListen
		s.mu.Unlock()

		s.logger.Info("listening", "server", l.name, "addr", ln.Addr().String())
		if onListen != nil {
			onListen(l.name, ln.Addr())
		}

		go func() {
			if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop stops the development server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.watcher.Stop()
	s.reload.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range s.servers {
		_ = srv.Shutdown(ctx)
	}
	s.servers = nil
}

// processChanges serializes change handling and coalesces bursts.
func (s *Server) processChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-s.changeCh:
			changes := []Change{change}
			draining := true
			for draining {
				select {
				case next := <-s.changeCh:
					changes = append(changes, next)
				default:
					draining = false
				}
			}
			s.handleChanges(ctx, changes)
		}
	}
}

// handleChanges recompiles what changed and notifies browsers. Edited
// components are recompiled on their own; runtime edits and removals
// trigger a full build.
func (s *Server) handleChanges(ctx context.Context, changes []Change) {
	var (
		full       bool
		components []string
		assets     bool
	)
	for _, change := range changes {
		s.logger.Debug("changed", "file", change.Path, "type", change.Type.String(), "removed", change.Removed)
		switch {
		case change.Type == ChangeConfig:
			s.logger.Warn("islands.json changed; restart the dev server to apply it")
		case change.Type == ChangeRuntime, change.Removed && change.Type == ChangeComponent:
			full = true
		case change.Type == ChangeComponent:
			components = append(components, change.Path)
		default:
			assets = true
		}
	}

	var err error
	switch {
	case full:
		err = s.rebuild(ctx)
	case len(components) > 0:
		err = s.recompile(ctx, components)
	case assets:
		s.reload.NotifyReload("")
	}

	if s.options.OnRebuild != nil {
		s.options.OnRebuild(changes, err)
	}
}

// rebuild runs a full build and reports the outcome.
func (s *Server) rebuild(ctx context.Context) error {
	result, err := s.builder.Build(ctx)
	if err != nil {
		s.fail("", err)
		return err
	}
	s.logger.Info("built", "components", result.Components, "duration", result.Duration.Round(time.Millisecond))
	s.succeed("")
	return nil
}

// recompile compiles each changed component and reports the outcome.
func (s *Server) recompile(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		start := time.Now()
		if _, err := s.builder.CompileFile(ctx, path); err != nil {
			s.fail(s.rel(path), err)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("compiled", "file", s.rel(path), "duration", time.Since(start).Round(time.Millisecond))
	}
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	for _, path := range paths {
		s.succeed(s.rel(path))
	}
	return nil
}

func (s *Server) fail(file string, err error) {
	s.logger.Error("build failed", "file", file, "error", err)
	s.mu.Lock()
	s.failing = true
	s.mu.Unlock()
	s.reload.NotifyError(file, err.Error())
}

func (s *Server) succeed(file string) {
	s.mu.Lock()
	wasFailing := s.failing
	s.failing = false
	s.mu.Unlock()

	if wasFailing {
		s.reload.ClearError()
	}
	s.reload.NotifyReload(file)
}

func (s *Server) rel(path string) string {
	rel, err := filepath.Rel(s.config.Dir(), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
