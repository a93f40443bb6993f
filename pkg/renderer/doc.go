// Package renderer resolves the ordered renderer registry into the two
// index-aligned arrays the runtime helper consumes.
//
// A renderer pairs a server-side rendering module with a client-side
// hydration module for one UI framework. The registry order is significant:
// index i of every derived array describes registry entry i.
//
//	set, err := renderer.Resolve(ctx, cfg.Renderers, renderer.PackageResolver{Prefix: "/_islands/pkg"})
//	if err != nil {
//	    return err
//	}
//	// set.ServerHandles[i] and set.ClientURLs[i] describe cfg.Renderers[i]
package renderer
