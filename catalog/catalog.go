// Package catalog provides the built-in industry-to-competitor directory.
// The catalog is a bootstrapping dataset; it can be swapped for a live
// discovery backend without touching callers.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"intel-agent/models"
)

//go:embed catalog.yaml
var rawCatalog []byte

type catalogFile struct {
	Industries []industryEntry `yaml:"industries"`
}

type industryEntry struct {
	Name        string            `yaml:"name"`
	Competitors []competitorEntry `yaml:"competitors"`
}

type competitorEntry struct {
	Name   string   `yaml:"name"`
	Site   string   `yaml:"site"`
	RSS    []string `yaml:"rss"`
	GitHub []string `yaml:"github"`
	Press  []string `yaml:"press"`
	Social []string `yaml:"social"`
	Notes  string   `yaml:"notes"`
}

// Catalog is the parsed competitor directory. Lookups are case-sensitive on
// the industry name, matching the keys returned by Industries.
type Catalog struct {
	order      []string
	industries map[string][]models.Competitor
}

// Load parses the embedded catalog file.
func Load() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(rawCatalog, &file); err != nil {
		return nil, fmt.Errorf("failed to parse embedded catalog: %w", err)
	}

	c := &Catalog{industries: make(map[string][]models.Competitor, len(file.Industries))}

	for _, industry := range file.Industries {
		competitors := make([]models.Competitor, 0, len(industry.Competitors))
		for _, entry := range industry.Competitors {
			competitors = append(competitors, models.Competitor{
				Name:   entry.Name,
				Site:   entry.Site,
				RSS:    entry.RSS,
				GitHub: entry.GitHub,
				Press:  entry.Press,
				Social: entry.Social,
				Notes:  entry.Notes,
			})
		}

		c.order = append(c.order, industry.Name)
		c.industries[industry.Name] = competitors
	}

	return c, nil
}

// Industries returns the catalog's industry names in file order.
func (c *Catalog) Industries() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)

	return out
}

// Discover returns the competitors for an industry. Unknown industries yield
// an empty slice, not an error. The returned records are copies; scoring
// them in place never mutates the catalog.
func (c *Catalog) Discover(industry string) []models.Competitor {
	entries, ok := c.industries[strings.TrimSpace(industry)]
	if !ok {
		return []models.Competitor{}
	}

	out := make([]models.Competitor, len(entries))
	copy(out, entries)

	return out
}
