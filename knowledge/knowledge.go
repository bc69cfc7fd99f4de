// Package knowledge defines the campus knowledge base shape consumed by the
// retrieval engine, plus loaders for the embedded seed and external JSON files.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Item is one question/answer fact unit inside a category.
type Item struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// Category groups related items under a display name.
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Base is the top-level knowledge file shape.
type Base struct {
	Categories []Category `json:"categories"`
}

// Entry is a flattened, indexable fact unit. Entries are immutable after
// store initialization.
type Entry struct {
	ID       string
	Category string
	Question string
	Answer   string
	Keywords []string
}

// Text is the string that gets embedded for this entry.
func (e Entry) Text() string {
	return e.Question + "\n" + e.Answer
}

// Source yields the knowledge base categories. Implementations must be safe
// for one-shot use at process start.
type Source interface {
	Load(ctx context.Context) ([]Category, error)
}

// Flatten converts categories into indexable entries, preserving file order.
func Flatten(categories []Category) []Entry {
	var entries []Entry
	for _, cat := range categories {
		for _, item := range cat.Items {
			entries = append(entries, Entry{
				ID:       item.ID,
				Category: cat.Name,
				Question: item.Question,
				Answer:   item.Answer,
				Keywords: item.Keywords,
			})
		}
	}
	return entries
}

// FileSource loads a knowledge base from a JSON file on disk.
type FileSource struct {
	Path string
}

// Load reads and decodes the knowledge file.
func (s *FileSource) Load(ctx context.Context) ([]Category, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}

	var base Base
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge file: %w", err)
	}
	return base.Categories, nil
}

// StaticSource serves a fixed in-memory knowledge base. The zero value serves
// the embedded campus seed.
type StaticSource struct {
	Categories []Category
}

// Load returns the configured categories, or the embedded seed when none are set.
func (s *StaticSource) Load(ctx context.Context) ([]Category, error) {
	if len(s.Categories) > 0 {
		return s.Categories, nil
	}
	return seedCategories(), nil
}

// Validate checks entry IDs for presence and uniqueness.
func Validate(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return fmt.Errorf("knowledge entry %q has empty id", e.Question)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate knowledge entry id: %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
