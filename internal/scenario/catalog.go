package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/metalagman/gauntlet/internal/model"
)

// ErrNoContent is returned by a Catalog with no entry for the requested domain.
var ErrNoContent = errors.New("no catalog content")

// CatalogEntry is one scenario body in a catalog file.
//
//	[[scenario]]
//	domain = "security_challenges"
//	complexity = "advanced"
//	description = "..."
//	objectives = ["..."]
type CatalogEntry struct {
	Domain     string `toml:"domain"`
	Complexity string `toml:"complexity"`
	model.Content
}

// Catalog serves scenario content from a TOML file.
type Catalog struct {
	Entries []CatalogEntry `toml:"scenario"`
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(string(data))
}

// ParseCatalog decodes catalog TOML. Domain and complexity names are stored in their
// canonical lowercase form.
func ParseCatalog(data string) (*Catalog, error) {
	var c Catalog
	if _, err := toml.Decode(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i := range c.Entries {
		e := &c.Entries[i]
		d, err := model.ParseDomain(e.Domain)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		e.Domain = string(d)
		if e.Complexity != "" {
			cx, err := model.ParseComplexity(e.Complexity)
			if err != nil {
				return nil, fmt.Errorf("catalog entry %d: %w", i, err)
			}
			e.Complexity = cx.String()
		}
	}
	return &c, nil
}

// BuildContent returns the entry matching domain and complexity, falling back to an
// entry for the domain with no complexity set.
func (c *Catalog) BuildContent(_ context.Context, domain model.Domain, complexity model.Complexity) (model.Content, error) {
	var generic *CatalogEntry
	for i := range c.Entries {
		e := &c.Entries[i]
		if d, err := model.ParseDomain(e.Domain); err != nil || d != domain {
			continue
		}
		if e.Complexity == "" {
			if generic == nil {
				generic = e
			}
			continue
		}
		if cx, err := model.ParseComplexity(e.Complexity); err == nil && cx == complexity {
			return e.Content, nil
		}
	}
	if generic != nil {
		return generic.Content, nil
	}
	return model.Content{}, fmt.Errorf("%w for %s/%s", ErrNoContent, domain, complexity)
}
