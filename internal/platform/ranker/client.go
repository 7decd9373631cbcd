package ranker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"anicatalog/internal/platform/upstream"
)

const (
	DefaultBaseURL = "https://cache-api.ranker.com"
	// AiringAnimeList is the "best current anime" list.
	AiringAnimeList = 2235482
	// PageSize is the page size the list endpoint serves reliably.
	PageSize = 10
)

// browserUA is sent because the cache API rejects unknown agents.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

type Item struct {
	Rank int `json:"rank"`
	Node struct {
		Name     string `json:"name"`
		NodeWiki struct {
			WikiText string `json:"wikiText"`
		} `json:"nodeWiki"`
	} `json:"node"`
	Image struct {
		ThumbImgURL string `json:"thumbImgUrl"`
	} `json:"image"`
}

type pageResponse struct {
	ListItems []Item `json:"listItems"`
}

type Client struct {
	http    *upstream.Client
	baseURL string
}

func NewClient(http *upstream.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: http, baseURL: baseURL}
}

// Page returns one page of list items starting at offset. An empty slice
// means the list is exhausted.
func (c *Client) Page(ctx context.Context, listID, offset, limit int) ([]Item, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("useDefaultNodeLinks", "false")
	q.Set("include", "votes,wikiText,rankings,serviceProviders,openListItemContributors,taggedLists")
	q.Set("propertyFetchType", "SHOWN_ON_LIST_ONLY")
	q.Set("xrClient", "ranker-v3-client")
	u := fmt.Sprintf("%s/lists/%d/items?%s", c.baseURL, listID, q.Encode())

	header := http.Header{}
	header.Set("User-Agent", browserUA)

	var res pageResponse
	if err := c.http.GetJSON(ctx, u, header, &res); err != nil {
		return nil, fmt.Errorf("fetch ranker page offset %d: %w", offset, err)
	}
	return res.ListItems, nil
}
