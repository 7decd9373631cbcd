package source

import (
	"go.uber.org/zap"

	"anicatalog/internal/catalog"
	"anicatalog/internal/platform/anilist"
	"anicatalog/internal/platform/netflix"
	"anicatalog/internal/platform/ranker"
)

// Providers are the upstream clients and resolvers the catalogs draw on.
// Ranker titles are romanized loosely, so RankerResolver is usually a
// fuzzy resolver chained in front of Resolver.
type Providers struct {
	AniList        *anilist.Client
	Ranker         *ranker.Client
	Netflix        *netflix.Client
	Resolver       catalog.Resolver
	RankerResolver catalog.Resolver
}

type Limits struct {
	AniList int
	Ranker  int
	Netflix int
}

func DefaultLimits() Limits {
	return Limits{AniList: 30, Ranker: 50, Netflix: 30}
}

// Definitions lists every catalog the addon serves, in manifest order.
func Definitions(p Providers, limits Limits, concurrency int, logger *zap.Logger) []catalog.Definition {
	rankerResolver := p.RankerResolver
	if rankerResolver == nil {
		rankerResolver = p.Resolver
	}
	anilistDef := func(id, name string, list anilist.List) catalog.Definition {
		return catalog.Definition{
			ID:      id,
			Name:    name,
			Adapter: NewAniList(p.AniList, list, p.Resolver, concurrency),
			Limit:   limits.AniList,
		}
	}

	return []catalog.Definition{
		{
			ID:      "top-airing-ranker",
			Name:    "Top Airing (Ranker)",
			Adapter: NewRanker(p.Ranker, ranker.AiringAnimeList, rankerResolver, concurrency, logger),
			Limit:   limits.Ranker,
		},
		anilistDef("top-airing-anilist", "Airing Now", anilist.ListAiring),
		anilistDef("top-anilist", "Top Rated", anilist.ListTop),
		anilistDef("season-anilist", "This Season", anilist.ListSeason),
		anilistDef("popular-anilist", "Popular", anilist.ListPopular),
		anilistDef("next-to-watch-anilist", "Next To Watch", anilist.ListNextToWatch),
		anilistDef("upcoming-anilist", "Upcoming", anilist.ListUpcoming),
		anilistDef("trending-now-anilist", "Trending Now", anilist.ListTrending),
		{
			ID:      "netflix-originals",
			Name:    "Netflix Originals",
			Adapter: NewNetflix(p.Netflix, p.Resolver, concurrency),
			Limit:   limits.Netflix,
		},
	}
}
