package source

import (
	"context"

	"go.uber.org/zap"

	"anicatalog/internal/catalog"
	"anicatalog/internal/platform/ranker"
)

// Ranker pages through a Ranker list until it has limit entries or the
// list ends.
type Ranker struct {
	client      *ranker.Client
	listID      int
	resolver    catalog.Resolver
	concurrency int
	logger      *zap.Logger
}

func NewRanker(client *ranker.Client, listID int, resolver catalog.Resolver, concurrency int, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{client: client, listID: listID, resolver: resolver, concurrency: concurrency, logger: logger}
}

// Fetch fails only when the first page fails. A later page failing ends
// pagination and the entries gathered so far are returned.
func (a *Ranker) Fetch(ctx context.Context, limit int) ([]catalog.Item, error) {
	var raws []RawItem
	for offset := 0; len(raws) < limit; offset += ranker.PageSize {
		size := min(ranker.PageSize, limit-len(raws))
		page, err := a.client.Page(ctx, a.listID, offset, size)
		if err != nil {
			if offset == 0 {
				return nil, err
			}
			a.logger.Warn("ranker pagination stopped early",
				zap.Int("offset", offset),
				zap.Int("items", len(raws)),
				zap.Error(err),
			)
			break
		}
		if len(page) == 0 {
			break
		}
		for _, it := range page {
			rank := it.Rank
			raws = append(raws, RawItem{
				Title:       it.Node.Name,
				Poster:      it.Image.ThumbImgURL,
				Description: it.Node.NodeWiki.WikiText,
				Rank:        &rank,
			})
		}
	}

	items, err := Normalize(ctx, raws, a.resolver, a.concurrency)
	if err != nil {
		return nil, err
	}
	return truncate(items, limit), nil
}
