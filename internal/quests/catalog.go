// Package quests holds the fixed catalog of self-care quests and picks one
// at random for each request.
package quests

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyCatalog is returned when a catalog source yields no usable quests.
var ErrEmptyCatalog = errors.New("quest catalog is empty")

//go:embed quests.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Quests []string `yaml:"quests"`
}

// Catalog is an immutable, de-duplicated list of quest texts.
type Catalog struct {
	texts []string
}

// NewCatalog trims every entry, drops blanks and keeps the first occurrence
// of each duplicate.
func NewCatalog(texts []string) (*Catalog, error) {
	seen := make(map[string]bool, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Catalog{texts: out}, nil
}

// Len returns the number of quests in the catalog.
func (c *Catalog) Len() int { return len(c.texts) }

// At returns the quest text at index i.
func (c *Catalog) At(i int) string { return c.texts[i] }

// Texts returns a copy of every quest text.
func (c *Catalog) Texts() []string {
	return append([]string(nil), c.texts...)
}

// Contains reports whether text is a catalog entry.
func (c *Catalog) Contains(text string) bool {
	for _, t := range c.texts {
		if t == text {
			return true
		}
	}
	return false
}

// ParseYAML reads a document of the form `quests: [ ... ]`.
func ParseYAML(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse quest catalog: %w", err)
	}
	return NewCatalog(f.Quests)
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quest catalog %s: %w", path, err)
	}
	return ParseYAML(data)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return ParseYAML(defaultCatalogYAML)
}

// TextLister is implemented by stores that hold quest texts.
type TextLister interface {
	ListTexts(ctx context.Context) ([]string, error)
}

// LoadStore reads every quest text from a store.
func LoadStore(ctx context.Context, store TextLister) (*Catalog, error) {
	texts, err := store.ListTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load quests from store: %w", err)
	}
	return NewCatalog(texts)
}
