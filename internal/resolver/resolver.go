// Package resolver combines title resolvers.
package resolver

import (
	"context"

	"anicatalog/internal/catalog"
)

// Chain asks each resolver in turn and returns the first hit.
type Chain []catalog.Resolver

func NewChain(resolvers ...catalog.Resolver) Chain {
	out := make(Chain, 0, len(resolvers))
	for _, r := range resolvers {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (c Chain) Resolve(ctx context.Context, title string) (string, bool) {
	for _, r := range c {
		if ctx.Err() != nil {
			return "", false
		}
		if id, ok := r.Resolve(ctx, title); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// Func adapts a plain function to catalog.Resolver.
type Func func(ctx context.Context, title string) (string, bool)

func (f Func) Resolve(ctx context.Context, title string) (string, bool) {
	return f(ctx, title)
}

// None never resolves. Items fall back to generated ids.
var None catalog.Resolver = Func(func(context.Context, string) (string, bool) { return "", false })
