// Package catalog holds the static set of draftable champions. The catalog is
// read-only after construction and safe to share across every session.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed champions.yaml
var embedded []byte

type Champion struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

type Catalog struct {
	ordered []Champion
	byID    map[string]Champion
}

type catalogFile struct {
	Champions []Champion `yaml:"champions"`
}

func New(champions []Champion) (*Catalog, error) {
	if len(champions) == 0 {
		return nil, fmt.Errorf("catalog: empty champion list")
	}
	byID := make(map[string]Champion, len(champions))
	for _, c := range champions {
		if c.ID == "" {
			return nil, fmt.Errorf("catalog: champion with empty id")
		}
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate champion id %q", c.ID)
		}
		byID[c.ID] = c
	}
	return &Catalog{ordered: champions, byID: byID}, nil
}

// Default parses the embedded champion list.
func Default() (*Catalog, error) {
	return parse(embedded)
}

// LoadFile reads a champions.yaml override, e.g. for a patch-specific pool.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return New(f.Champions)
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Get(id string) (Champion, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

func (c *Catalog) Len() int { return len(c.ordered) }

// Ordered returns champions in catalog order. Callers must not mutate the
// returned slice.
func (c *Catalog) Ordered() []Champion { return c.ordered }

// FirstAvailable walks the catalog in order and returns the first id the
// predicate accepts. Timeout auto-resolution relies on this being
// deterministic for a given catalog.
func (c *Catalog) FirstAvailable(available func(id string) bool) (string, bool) {
	for _, ch := range c.ordered {
		if available(ch.ID) {
			return ch.ID, true
		}
	}
	return "", false
}
