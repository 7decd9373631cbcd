package catalog

// Manifest is the static addon description served to clients. No
// negotiation happens; every client gets the same document.
type Manifest struct {
	ID            string            `json:"id"`
	Version       string            `json:"version"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Resources     []string          `json:"resources"`
	Types         []string          `json:"types"`
	IDPrefixes    []string          `json:"idPrefixes,omitempty"`
	Catalogs      []ManifestCatalog `json:"catalogs"`
	BehaviorHints BehaviorHints     `json:"behaviorHints"`
}

type ManifestCatalog struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type BehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

func NewManifest(registry *Registry, version string) Manifest {
	defs := registry.Definitions()
	catalogs := make([]ManifestCatalog, 0, len(defs))
	for _, d := range defs {
		catalogs = append(catalogs, ManifestCatalog{ID: d.ID, Type: KindSeries, Name: d.Name})
	}
	if version == "" {
		version = "0.0.0"
	}
	return Manifest{
		ID:          "community.anicatalog",
		Version:     version,
		Name:        "Anime Catalogs",
		Description: "Airing, seasonal, top rated and upcoming anime from AniList, Ranker and Netflix.",
		Resources:   []string{"catalog"},
		Types:       []string{KindSeries},
		IDPrefixes:  []string{"tt"},
		Catalogs:    catalogs,
		BehaviorHints: BehaviorHints{
			Configurable: true,
		},
	}
}
