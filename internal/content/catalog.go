package content

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type StoryMeta struct {
	Slug     string `yaml:"slug" json:"slug"`
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle,omitempty"`
	Order    int    `yaml:"order" json:"order"`
}

type Track struct {
	Title    string    `yaml:"title"`
	File     string    `yaml:"file"`
	Duration float64   `yaml:"duration"`
	Spectrum []float64 `yaml:"spectrum"`
}

type PlaylistMeta struct {
	Slug   string  `yaml:"slug"`
	Title  string  `yaml:"title"`
	Tracks []Track `yaml:"tracks"`
}

// Catalog is the static story and playlist metadata. Stories are kept sorted
// by Order.
type Catalog struct {
	Stories   []StoryMeta    `yaml:"stories"`
	Playlists []PlaylistMeta `yaml:"playlists"`
}

// DefaultCatalog parses the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalog)
}

func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("content: parse catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Stories))
	for _, s := range c.Stories {
		if err := ValidateSlug(s.Slug); err != nil {
			return nil, err
		}
		if _, dup := seen[s.Slug]; dup {
			return nil, fmt.Errorf("content: duplicate story slug %q", s.Slug)
		}
		seen[s.Slug] = struct{}{}
	}
	for _, p := range c.Playlists {
		if p.Slug == "" {
			return nil, errors.New("content: playlist without slug")
		}
	}
	sort.SliceStable(c.Stories, func(i, j int) bool {
		return c.Stories[i].Order < c.Stories[j].Order
	})
	return &c, nil
}
