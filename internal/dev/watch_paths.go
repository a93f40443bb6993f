package dev

import (
	"path/filepath"

	"github.com/vango-dev/islands/internal/config"
)

// CollectWatchPaths returns the deduplicated paths the dev server polls:
// the source directory, the runtime directory, islands.json and any
// dev.watch entries.
func CollectWatchPaths(cfg *config.Config) []string {
	paths := []string{cfg.RuntimePath()}
	if cfg.Path() != "" {
		paths = append(paths, cfg.Path())
	}
	paths = append(paths, cfg.WatchPaths()...)

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}
	return unique
}
