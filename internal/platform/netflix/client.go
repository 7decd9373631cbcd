package netflix

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"anicatalog/internal/platform/upstream"
)

const DefaultURL = "https://www.whats-on-netflix.com/wp-content/plugins/whats-on-netflix/json/originalanime.json"

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

type Title struct {
	Title         string `json:"title"`
	IMDb          string `json:"imdb"`
	ImagePortrait string `json:"image_portrait"`
	Description   string `json:"description"`
}

// Rating parses the "7.8/10" IMDb field.
func (t Title) Rating() (float64, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t.IMDb), "/10"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type Client struct {
	http *upstream.Client
	url  string
}

func NewClient(http *upstream.Client, url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{http: http, url: url}
}

func (c *Client) OriginalAnime(ctx context.Context) ([]Title, error) {
	header := http.Header{}
	header.Set("User-Agent", browserUA)
	var out []Title
	if err := c.http.GetJSON(ctx, c.url, header, &out); err != nil {
		return nil, fmt.Errorf("fetch netflix originals: %w", err)
	}
	return out, nil
}

// TopRated drops titles without a parsable IMDb rating and returns at most
// limit titles, best rated first. Ties keep feed order.
func TopRated(titles []Title, limit int) []Title {
	type rated struct {
		Title
		score float64
	}
	kept := make([]rated, 0, len(titles))
	for _, t := range titles {
		if score, ok := t.Rating(); ok {
			kept = append(kept, rated{Title: t, score: score})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	out := make([]Title, len(kept))
	for i, k := range kept {
		out[i] = k.Title
	}
	return out
}
