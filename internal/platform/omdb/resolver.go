package omdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"anicatalog/internal/platform/upstream"
)

const DefaultBaseURL = "https://www.omdbapi.com/"

// DefaultThreshold is the largest edit distance accepted, as a fraction of
// the longer of query and candidate.
const DefaultThreshold = 0.3

var ErrMissingAPIKey = errors.New("omdb api key is not set")

type SearchResult struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
}

type searchResponse struct {
	Search   []SearchResult `json:"Search"`
	Response string         `json:"Response"`
	Error    string         `json:"Error"`
}

type Resolver struct {
	http      *upstream.Client
	apiKey    string
	baseURL   string
	threshold float64
	logger    *zap.Logger
}

func NewResolver(http *upstream.Client, apiKey, baseURL string, logger *zap.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{http: http, apiKey: apiKey, baseURL: baseURL, threshold: DefaultThreshold, logger: logger}
}

// Search queries OMDb for series matching query. OMDb answers "not found"
// with Response=False, which is an empty result here.
func (r *Resolver) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if r.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	q := url.Values{}
	q.Set("s", query)
	q.Set("apikey", r.apiKey)
	q.Set("type", "series")

	var res searchResponse
	if err := r.http.GetJSON(ctx, r.baseURL+"?"+q.Encode(), nil, &res); err != nil {
		return nil, fmt.Errorf("omdb search %q: %w", query, err)
	}
	return res.Search, nil
}

// Resolve searches for title and picks the closest fuzzy match. When the
// first search has no acceptable match it retries with spaces removed,
// which is how OMDb indexes many romanized titles.
func (r *Resolver) Resolve(ctx context.Context, title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false
	}

	queries := []string{title}
	if compact := strings.Join(strings.Fields(title), ""); compact != title {
		queries = append(queries, compact)
	}
	for _, q := range queries {
		results, err := r.Search(ctx, q)
		if err != nil {
			r.logger.Debug("omdb lookup failed", zap.String("title", title), zap.Error(err))
			return "", false
		}
		if best, ok := BestMatch(title, results, r.threshold); ok {
			return best.IMDbID, true
		}
	}
	return "", false
}

// BestMatch ranks candidates by edit distance to title, considering only
// candidates that fuzzily contain the title or are contained by it.
func BestMatch(title string, candidates []SearchResult, threshold float64) (SearchResult, bool) {
	if len(candidates) == 0 {
		return SearchResult{}, false
	}
	titles := make([]string, len(candidates))
	for i, c := range candidates {
		titles[i] = c.Title
	}

	ranks := fuzzy.RankFindNormalizedFold(title, titles)
	seen := make(map[int]bool, len(ranks))
	for _, rk := range ranks {
		seen[rk.OriginalIndex] = true
	}
	lowerTitle := strings.ToLower(title)
	for i, t := range titles {
		if seen[i] || !fuzzy.MatchNormalizedFold(t, title) {
			continue
		}
		ranks = append(ranks, fuzzy.Rank{
			Source:        t,
			Target:        title,
			Distance:      fuzzy.LevenshteinDistance(strings.ToLower(t), lowerTitle),
			OriginalIndex: i,
		})
	}
	if len(ranks) == 0 {
		return SearchResult{}, false
	}
	sort.Stable(ranks)

	best := ranks[0]
	longest := len([]rune(title))
	if n := len([]rune(titles[best.OriginalIndex])); n > longest {
		longest = n
	}
	if float64(best.Distance) > threshold*float64(longest) {
		return SearchResult{}, false
	}
	c := candidates[best.OriginalIndex]
	if c.IMDbID == "" {
		return SearchResult{}, false
	}
	return c, true
}
