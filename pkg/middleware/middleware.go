package middleware

import (
	"context"
)

// Operation names a pipeline entry point.
type Operation string

const (
	OpConfig    Operation = "config"
	OpTransform Operation = "transform"
	OpLoad      Operation = "load"
)

// Call describes one observed invocation.
type Call struct {
	Operation Operation

	// File is the file being transformed or loaded; empty for config.
	File string
}

// Observer wraps a pipeline operation. Implementations must call next
// exactly once and return its error.
type Observer interface {
	Observe(ctx context.Context, call Call, next func(context.Context) error) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, call Call, next func(context.Context) error) error

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, call Call, next func(context.Context) error) error {
	return f(ctx, call, next)
}

// Noop is an Observer that only calls next.
var Noop Observer = ObserverFunc(func(ctx context.Context, _ Call, next func(context.Context) error) error {
	return next(ctx)
})

// Chain composes observers; the first one is outermost.
func Chain(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	switch len(list) {
	case 0:
		return Noop
	case 1:
		return list[0]
	}

	return ObserverFunc(func(ctx context.Context, call Call, next func(context.Context) error) error {
		return chainFrom(list, 0, ctx, call, next)
	})
}

func chainFrom(list []Observer, i int, ctx context.Context, call Call, next func(context.Context) error) error {
	if i == len(list) {
		return next(ctx)
	}
	return list[i].Observe(ctx, call, func(ctx context.Context) error {
		return chainFrom(list, i+1, ctx, call, next)
	})
}
