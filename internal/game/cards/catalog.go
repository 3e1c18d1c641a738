package cards

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Template describes one kind of card that a deck can synthesize.
type Template struct {
	Title  string            `yaml:"title"`
	Cost   int               `yaml:"cost"`
	Fields map[string]string `yaml:"fields"`
}

// Catalog holds the card templates for every deck.
type Catalog map[Type][]Template

// ParseCatalog decodes a YAML catalog keyed by card type code.
func ParseCatalog(raw []byte) (Catalog, error) {
	var decoded map[string][]Template
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("cards catalog: %w", err)
	}

	catalog := make(Catalog, len(decoded))
	for code, templates := range decoded {
		t, ok := ParseType(code)
		if !ok {
			return nil, fmt.Errorf("cards catalog: unknown card type %q", code)
		}
		for i, tmpl := range templates {
			if tmpl.Title == "" {
				return nil, fmt.Errorf("cards catalog: %s template %d has no title", t, i)
			}
		}
		catalog[t] = append(catalog[t], templates...)
	}
	return catalog, nil
}

// LoadCatalog reads a YAML catalog from disk.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(raw)
}
