package renderer

import (
	"context"
	"path"
	"strings"

	"github.com/vango-dev/islands/internal/errors"
)

// PackageResolver serves bare module references from a fixed URL prefix.
//
// References that are already URLs or paths ("/x.js", "./x.js", "https://...")
// are returned unchanged. Bare references ("@scope/pkg/client.js") become
// Prefix + "/" + ref, with ".js" appended when the reference has no extension.
type PackageResolver struct {
	Prefix string
}

// ResolvePackageURL implements URLResolver.
func (r PackageResolver) ResolvePackageURL(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("E102").WithDetail("empty module reference")
	}
	if isPathOrURL(ref) {
		return ref, nil
	}

	if path.Ext(ref) == "" {
		ref += ".js"
	}
	prefix := strings.TrimSuffix(r.Prefix, "/")
	return prefix + "/" + ref, nil
}

func isPathOrURL(ref string) bool {
	return strings.HasPrefix(ref, "/") ||
		strings.HasPrefix(ref, "./") ||
		strings.HasPrefix(ref, "../") ||
		strings.Contains(ref, "://")
}
