// Package source turns provider lists into catalog items. Each adapter
// fetches raw entries from one provider and hands them to Normalize, which
// resolves ids and cleans the batch.
package source

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"anicatalog/internal/catalog"
	"anicatalog/internal/platform/htmltext"
)

const DefaultConcurrency = 8

// RawItem is a provider entry before resolution. Key is the provider's own
// identity for the entry and is used for deduplication when set.
type RawItem struct {
	Title       string
	Poster      string
	Description string
	Rank        *int
	Key         string
}

// Normalize resolves every raw item to an external id and returns the
// cleaned batch in provider order. Items with blank titles are dropped,
// unresolved titles get a generated id, and duplicates (same key or same
// resolved id) keep their first occurrence.
func Normalize(ctx context.Context, raws []RawItem, resolver catalog.Resolver, concurrency int) ([]catalog.Item, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	kept := make([]RawItem, 0, len(raws))
	for _, raw := range raws {
		raw.Title = strings.TrimSpace(raw.Title)
		if raw.Title == "" {
			continue
		}
		kept = append(kept, raw)
	}

	ids := make([]catalog.ExternalID, len(kept))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, raw := range kept {
		g.Go(func() error {
			ids[i] = resolve(gctx, resolver, raw.Title)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]catalog.Item, 0, len(kept))
	seenKeys := make(map[string]struct{}, len(kept))
	seenIDs := make(map[string]struct{}, len(kept))
	for i, raw := range kept {
		if raw.Key != "" {
			if _, dup := seenKeys[raw.Key]; dup {
				continue
			}
			seenKeys[raw.Key] = struct{}{}
		}
		id := ids[i]
		if !id.Generated {
			if _, dup := seenIDs[id.Value]; dup {
				continue
			}
			seenIDs[id.Value] = struct{}{}
		}
		items = append(items, catalog.Item{
			ID:          id.Value,
			Type:        catalog.KindSeries,
			Name:        raw.Title,
			Poster:      strings.TrimSpace(raw.Poster),
			Description: htmltext.Strip(raw.Description),
			Rank:        raw.Rank,
		})
	}
	return items, nil
}

func resolve(ctx context.Context, resolver catalog.Resolver, title string) catalog.ExternalID {
	if resolver != nil {
		if id, ok := resolver.Resolve(ctx, title); ok && id != "" {
			return catalog.Resolved(id)
		}
	}
	return catalog.Generated()
}
