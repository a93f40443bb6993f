package renderer

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/islands/internal/errors"
)

// Descriptor names the server and client modules of one renderer.
type Descriptor struct {
	// Name is a display name (e.g. "vue"); it is not used for resolution.
	Name string `json:"name,omitempty"`

	// Server is the module reference imported during server rendering.
	Server string `json:"server"`

	// Client is the module reference loaded by the browser for hydration.
	Client string `json:"client"`
}

// Set is the resolved form of a registry. Both slices have the length of
// the registry they were resolved from and share its order.
type Set struct {
	ServerHandles []string
	ClientURLs    []string
}

// Len returns the number of renderers in the set.
func (s Set) Len() int {
	return len(s.ServerHandles)
}

// URLResolver maps a module reference to the URL the browser loads it from.
type URLResolver interface {
	ResolvePackageURL(ctx context.Context, ref string) (string, error)
}

// ResolverFunc adapts a function to URLResolver.
type ResolverFunc func(ctx context.Context, ref string) (string, error)

// ResolvePackageURL calls f(ctx, ref).
func (f ResolverFunc) ResolvePackageURL(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// Resolve builds the Set for descriptors. Client URLs are resolved
// concurrently; each result lands in the slot of its descriptor so the
// output order never depends on completion order. The first failure
// cancels the remaining resolutions and fails the whole call.
func Resolve(ctx context.Context, descriptors []Descriptor, resolver URLResolver) (Set, error) {
	set := Set{
		ServerHandles: make([]string, len(descriptors)),
		ClientURLs:    make([]string, len(descriptors)),
	}

	if resolver == nil && len(descriptors) > 0 {
		return Set{}, errors.New("E101").WithDetail("no package URL resolver configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range descriptors {
		set.ServerHandles[i] = d.Server

		g.Go(func() error {
			url, err := resolver.ResolvePackageURL(gctx, d.Client)
			if err != nil {
				return errors.New("E101").
					WithDetail("renderer " + label(i, d) + ", client module " + strconv.Quote(d.Client)).
					WithSuggestion("Check that the renderer package is installed").
					Wrap(err)
			}
			set.ClientURLs[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Validate reports the first descriptor missing a server or client module.
func Validate(descriptors []Descriptor) error {
	for i, d := range descriptors {
		if d.Server == "" || d.Client == "" {
			return errors.New("E102").
				WithDetail("renderer " + label(i, d) + " is missing a server or client module")
		}
	}
	return nil
}

func label(i int, d Descriptor) string {
	if d.Name != "" {
		return strconv.Quote(d.Name)
	}
	return "#" + strconv.Itoa(i)
}
