package dev

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/islands/internal/build"
	"github.com/vango-dev/islands/internal/config"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeComponent is a .island or .md source.
	ChangeComponent ChangeType = iota
	// ChangeRuntime is a runtime module; the runtime is rebuilt.
	ChangeRuntime
	// ChangeConfig is islands.json.
	ChangeConfig
	// ChangeAsset is anything else under a watched path.
	ChangeAsset
)

func (t ChangeType) String() string {
	switch t {
	case ChangeComponent:
		return "component"
	case ChangeRuntime:
		return "runtime"
	case ChangeConfig:
		return "config"
	default:
		return "asset"
	}
}

// Change represents a detected file change.
type Change struct {
	Path    string
	Type    ChangeType
	Removed bool
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the files and directories to watch.
	Paths []string

	// Ignore patterns to skip (globs or path segments).
	Ignore []string

	// Interval is the polling interval.
	Interval time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls the watched paths for modifications.
type Watcher struct {
	config     WatcherConfig
	onChange   func(Change)
	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	timestamps map[string]time.Time
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}

	return &Watcher{
		config:     config,
		timestamps: make(map[string]time.Time),
	}
}

// OnChange sets the callback for file changes.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start polls until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	w.mu.Lock()
	w.timestamps = w.scan()
	w.mu.Unlock()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			w.mu.Lock()
			callback := w.onChange
			w.mu.Unlock()
			for _, change := range w.poll() {
				if callback != nil {
					callback(change)
				}
			}
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// poll compares the tree against the last scan and returns the differences
// in path order.
func (w *Watcher) poll() []Change {
	current := w.scan()

	w.mu.Lock()
	previous := w.timestamps
	w.timestamps = current
	w.mu.Unlock()

	var changes []Change
	for p, modTime := range current {
		if last, ok := previous[p]; !ok || modTime.After(last) {
			changes = append(changes, Change{Path: p, Type: classifyChange(p)})
		}
	}
	for p := range previous {
		if _, ok := current[p]; !ok {
			changes = append(changes, Change{Path: p, Type: classifyChange(p), Removed: true})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

// scan records the modification time of every watched file.
func (w *Watcher) scan() map[string]time.Time {
	seen := make(map[string]time.Time)
	for _, root := range w.config.Paths {
		_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if p != root {
				rel, _ := filepath.Rel(root, p)
				if w.shouldIgnore(rel) {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}
			if d.IsDir() {
				return nil
			}
			if info, err := d.Info(); err == nil {
				seen[p] = info.ModTime()
			}
			return nil
		})
	}
	return seen
}

// shouldIgnore checks if a path, relative to its watch root, should be
// ignored. Patterns with glob characters match the base name (or the whole
// path when they contain a separator); plain patterns match whole path
// segments.
func (w *Watcher) shouldIgnore(rel string) bool {
	name := filepath.Base(rel)
	normalized := filepath.ToSlash(rel)

	for _, pattern := range w.config.Ignore {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}

		if strings.ContainsAny(pattern, "*?[") {
			target := name
			if strings.Contains(pattern, "/") {
				target = normalized
			}
			if matched, _ := path.Match(pattern, target); matched {
				return true
			}
			continue
		}

		if containsSegments(normalized, pattern) {
			return true
		}
	}

	return false
}

// containsSegments reports whether the slash-separated segments of pattern
// appear contiguously in p.
func containsSegments(p, pattern string) bool {
	pathParts := segments(p)
	patternParts := segments(pattern)
	if len(patternParts) == 0 {
		return false
	}

	for i := 0; i+len(patternParts) <= len(pathParts); i++ {
		match := true
		for j := range patternParts {
			if pathParts[i+j] != patternParts[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func segments(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

// classifyChange determines the type of change based on the file name.
func classifyChange(p string) ChangeType {
	if filepath.Base(p) == config.ConfigFileName {
		return ChangeConfig
	}
	if build.IsComponent(p) {
		return ChangeComponent
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".js", ".mjs":
		return ChangeRuntime
	}
	return ChangeAsset
}
