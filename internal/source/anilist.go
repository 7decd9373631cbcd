package source

import (
	"context"
	"strconv"

	"anicatalog/internal/catalog"
	"anicatalog/internal/platform/anilist"
)

const noDescription = "No description available"

// AniList serves one ranked AniList list.
type AniList struct {
	client      *anilist.Client
	list        anilist.List
	resolver    catalog.Resolver
	concurrency int
}

func NewAniList(client *anilist.Client, list anilist.List, resolver catalog.Resolver, concurrency int) *AniList {
	return &AniList{client: client, list: list, resolver: resolver, concurrency: concurrency}
}

func (a *AniList) Fetch(ctx context.Context, limit int) ([]catalog.Item, error) {
	media, err := a.client.Media(ctx, a.list, limit)
	if err != nil {
		return nil, err
	}

	var raws []RawItem
	if a.list == anilist.ListNextToWatch {
		raws = recommendations(media)
	} else {
		raws = make([]RawItem, 0, len(media))
		for _, m := range media {
			raws = append(raws, mediaItem(m))
		}
	}

	items, err := Normalize(ctx, raws, a.resolver, a.concurrency)
	if err != nil {
		return nil, err
	}
	return truncate(items, limit), nil
}

// recommendations flattens the recommended titles of each popular title.
func recommendations(media []anilist.Media) []RawItem {
	var raws []RawItem
	for _, m := range media {
		if m.Recommendations == nil {
			continue
		}
		for _, node := range m.Recommendations.Nodes {
			rec := node.MediaRecommendation
			if rec == nil {
				continue
			}
			raw := mediaItem(*rec)
			if raw.Description == "" {
				raw.Description = noDescription
			}
			raws = append(raws, raw)
		}
	}
	return raws
}

func mediaItem(m anilist.Media) RawItem {
	return RawItem{
		Title:       m.Title.Preferred(),
		Poster:      m.CoverImage.Large,
		Description: m.Description,
		Key:         "anilist:" + strconv.Itoa(m.ID),
	}
}

func truncate(items []catalog.Item, limit int) []catalog.Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
