package catalog

import (
	"time"

	"github.com/google/uuid"
)

// KindSeries is the only item type this addon serves.
const KindSeries = "series"

// Item is one discoverable catalog entry, shaped the way the addon client
// expects it on the wire.
type Item struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Poster      string `json:"poster,omitempty"`
	Description string `json:"description"`
	Rank        *int   `json:"rank,omitempty"`
}

// ExternalID is either an id resolved from an external catalog (IMDb) or a
// generated fallback. Value is never empty.
type ExternalID struct {
	Value     string
	Generated bool
}

// Resolved wraps an id returned by a resolver.
func Resolved(id string) ExternalID {
	return ExternalID{Value: id}
}

// Generated returns a fresh random fallback id so items stay addressable
// when resolution misses.
func Generated() ExternalID {
	return ExternalID{Value: uuid.NewString(), Generated: true}
}

func (id ExternalID) String() string { return id.Value }

// Status is the operator view of one catalog's cache state.
type Status struct {
	CatalogID       string     `json:"catalog_id"`
	Name            string     `json:"name"`
	Items           int        `json:"items"`
	NextRefreshAt   *time.Time `json:"next_refresh_at"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
	Refreshing      bool       `json:"refreshing"`
	LastError       string     `json:"last_error,omitempty"`
}

// Request is one inbound catalog request.
type Request struct {
	CatalogID string
	Type      string
	Selected  Selection
}

// Response is the shaped catalog response. Items is never nil.
type Response struct {
	Items []Item `json:"metas"`
}

func emptyResponse() Response {
	return Response{Items: []Item{}}
}
