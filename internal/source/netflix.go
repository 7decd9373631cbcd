package source

import (
	"context"

	"anicatalog/internal/catalog"
	"anicatalog/internal/platform/netflix"
)

// Netflix serves Netflix original anime ordered by IMDb rating.
type Netflix struct {
	client      *netflix.Client
	resolver    catalog.Resolver
	concurrency int
}

func NewNetflix(client *netflix.Client, resolver catalog.Resolver, concurrency int) *Netflix {
	return &Netflix{client: client, resolver: resolver, concurrency: concurrency}
}

func (a *Netflix) Fetch(ctx context.Context, limit int) ([]catalog.Item, error) {
	titles, err := a.client.OriginalAnime(ctx)
	if err != nil {
		return nil, err
	}
	top := netflix.TopRated(titles, limit)
	raws := make([]RawItem, 0, len(top))
	for _, t := range top {
		raws = append(raws, RawItem{
			Title:       t.Title,
			Poster:      t.ImagePortrait,
			Description: t.Description,
		})
	}
	return Normalize(ctx, raws, a.resolver, a.concurrency)
}
