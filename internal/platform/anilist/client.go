package anilist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anicatalog/internal/platform/upstream"
)

const DefaultEndpoint = "https://graphql.anilist.co"

// ErrInvalidResponse is returned when the payload has no Page.media list.
var ErrInvalidResponse = errors.New("invalid response structure from AniList API")

// List selects one of the ranked AniList queries.
type List string

const (
	ListAiring      List = "airing"
	ListTop         List = "top"
	ListSeason      List = "season"
	ListPopular     List = "popular"
	ListUpcoming    List = "upcoming"
	ListTrending    List = "trending"
	ListNextToWatch List = "next-to-watch"
)

type Title struct {
	English string `json:"english"`
	Romaji  string `json:"romaji"`
}

// Preferred is the English title, falling back to romaji.
func (t Title) Preferred() string {
	if s := strings.TrimSpace(t.English); s != "" {
		return s
	}
	return strings.TrimSpace(t.Romaji)
}

type Media struct {
	ID         int   `json:"id"`
	Title      Title `json:"title"`
	CoverImage struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	Description     string           `json:"description"`
	Recommendations *Recommendations `json:"recommendations,omitempty"`
}

type Recommendations struct {
	Nodes []struct {
		MediaRecommendation *Media `json:"mediaRecommendation"`
	} `json:"nodes"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Page *struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type Client struct {
	http     *upstream.Client
	endpoint string
	now      func() time.Time
}

func NewClient(http *upstream.Client, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{http: http, endpoint: endpoint, now: time.Now}
}

// Media runs the query for list and returns at most perPage entries in
// AniList's order.
func (c *Client) Media(ctx context.Context, list List, perPage int) ([]Media, error) {
	query, ok := queries[list]
	if !ok {
		return nil, fmt.Errorf("anilist: unknown list %q", list)
	}
	vars := map[string]any{"page": 1, "perPage": perPage}
	if list == ListSeason {
		season, year := CurrentSeason(c.now())
		vars["season"] = season
		vars["seasonYear"] = year
	}

	var res graphQLResponse
	if err := c.http.PostJSON(ctx, c.endpoint, graphQLRequest{Query: query, Variables: vars}, &res); err != nil {
		return nil, fmt.Errorf("anilist %s query: %w", list, err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("anilist %s query: %s", list, res.Errors[0].Message)
	}
	if res.Data.Page == nil || res.Data.Page.Media == nil {
		return nil, fmt.Errorf("anilist %s query: %w", list, ErrInvalidResponse)
	}
	return res.Data.Page.Media, nil
}

// CurrentSeason maps a date to the AniList season enum. Boundaries are
// Mar 20, Jun 21, Sep 23 and Dec 21.
func CurrentSeason(t time.Time) (string, int) {
	month, day := t.Month(), t.Day()
	switch {
	case (month == time.March && day >= 20) || month == time.April || month == time.May || (month == time.June && day < 21):
		return "SPRING", t.Year()
	case (month == time.June && day >= 21) || month == time.July || month == time.August || (month == time.September && day < 23):
		return "SUMMER", t.Year()
	case (month == time.September && day >= 23) || month == time.October || month == time.November || (month == time.December && day < 21):
		return "FALL", t.Year()
	default:
		return "WINTER", t.Year()
	}
}
