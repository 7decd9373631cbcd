package imdb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"anicatalog/internal/platform/upstream"
)

const DefaultBaseURL = "https://v2.sg.media-imdb.com"

var (
	seasonRe     = regexp.MustCompile(`(?i)season\s*\d+`)
	partRe       = regexp.MustCompile(`(?i)part\s*\d+`)
	emptyParenRe = regexp.MustCompile(`\(\s*\)`)
	spacesRe     = regexp.MustCompile(`\s{2,}`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]`)
)

// CleanTitle drops season and part labels so "Attack on Titan Season 4
// Part 2" looks up the show itself.
func CleanTitle(title string) string {
	s := seasonRe.ReplaceAllString(title, "")
	s = partRe.ReplaceAllString(s, "")
	s = emptyParenRe.ReplaceAllString(s, "")
	s = spacesRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Normalize matches the suggestion API's key format: "Dan Da Dan" becomes
// "dandadan".
func Normalize(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}

type suggestion struct {
	ID    string `json:"id"`
	Label string `json:"l"`
}

type suggestionResponse struct {
	D []suggestion `json:"d"`
}

// Resolver looks titles up in the IMDb suggestion index.
type Resolver struct {
	http    *upstream.Client
	baseURL string
	logger  *zap.Logger
}

func NewResolver(http *upstream.Client, baseURL string, logger *zap.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{http: http, baseURL: baseURL, logger: logger}
}

// Resolve prefers the suggestion whose normalized label equals the
// normalized title and otherwise takes the first one. Lookup failures
// report not found.
func (r *Resolver) Resolve(ctx context.Context, title string) (string, bool) {
	normalized := Normalize(CleanTitle(title))
	if normalized == "" {
		return "", false
	}

	u := fmt.Sprintf("%s/suggestion/%c/%s.json", r.baseURL, normalized[0], normalized)
	var res suggestionResponse
	if err := r.http.GetJSON(ctx, u, nil, &res); err != nil {
		r.logger.Debug("imdb suggestion lookup failed", zap.String("title", title), zap.Error(err))
		return "", false
	}
	if len(res.D) == 0 {
		return "", false
	}

	match := res.D[0]
	for _, s := range res.D {
		if Normalize(s.Label) == normalized {
			match = s
			break
		}
	}
	if match.ID == "" {
		return "", false
	}
	return match.ID, true
}
