// Package plugins loads extra ticket patterns and release note categories
// from .releasekit/plugins. YAML files hold one definition per document;
// Go files are interpreted with yaegi and must export
// Definitions() []map[string]any, optionally with an error result.
package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/releasekit/internal/config"
	"github.com/kingrea/releasekit/internal/notes"
	"github.com/kingrea/releasekit/internal/release"
	"github.com/kingrea/releasekit/internal/ticket"
)

// Set is the merged content of a plugin directory.
type Set struct {
	Patterns   []ticket.Pattern
	Categories []notes.Category
	Files      []DefinitionFile
}

// Empty reports whether no definitions were found.
func (s Set) Empty() bool { return len(s.Files) == 0 }

// Load reads YAML and Go definitions under dir. Pattern orders and category
// names must be unique across all files.
func Load(dir string) (Set, error) {
	files, err := LoadDefinitionDir(dir)
	if err != nil {
		return Set{}, err
	}
	var set Set
	orders := make(map[int]string)
	names := make(map[string]string)
	for _, file := range files {
		def := file.Definition
		switch def.Kind {
		case KindPattern:
			if existing, ok := orders[def.Order]; ok {
				return Set{}, fmt.Errorf("plugin: duplicate pattern order %d (%s and %s)", def.Order, existing, file.Path)
			}
			orders[def.Order] = file.Path
			set.Patterns = append(set.Patterns, def.TicketPattern())
		case KindCategory:
			key := strings.ToLower(def.Name)
			if existing, ok := names[key]; ok {
				return Set{}, fmt.Errorf("plugin: duplicate category %q (%s and %s)", def.Name, existing, file.Path)
			}
			names[key] = file.Path
			set.Categories = append(set.Categories, def.Category())
		}
		set.Files = append(set.Files, file)
	}
	return set, nil
}

// Merge appends the plugin patterns and categories to s. Plugins may not
// reuse an order or category name already configured.
func Merge(s release.Settings, set Set) (release.Settings, error) {
	if set.Empty() {
		return s, nil
	}
	orders := make(map[int]struct{}, len(s.Patterns))
	for _, p := range s.Patterns {
		orders[p.Order] = struct{}{}
	}
	for _, p := range set.Patterns {
		if _, ok := orders[p.Order]; ok {
			return s, fmt.Errorf("plugin: pattern order %d is already configured", p.Order)
		}
	}
	categories := s.Assembler.Categories
	if len(categories) == 0 {
		categories = notes.DefaultCategories()
	}
	names := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		names[strings.ToLower(c.Name)] = struct{}{}
	}
	for _, c := range set.Categories {
		if _, ok := names[strings.ToLower(c.Name)]; ok {
			return s, fmt.Errorf("plugin: category %q is already configured", c.Name)
		}
	}
	s.Patterns = append(append([]ticket.Pattern(nil), s.Patterns...), set.Patterns...)
	if len(set.Categories) > 0 {
		s.Assembler.Categories = append(append([]notes.Category(nil), categories...), set.Categories...)
	}
	return s, nil
}

// Settings resolves the project settings and merges the project's plugins
// into them.
func Settings(cfg *config.Config) (release.Settings, Set, error) {
	if cfg == nil {
		return release.DefaultSettings(), Set{}, nil
	}
	settings, err := cfg.Settings()
	if err != nil {
		return release.Settings{}, Set{}, err
	}
	set, err := Load(cfg.PluginsDir())
	if err != nil {
		return release.Settings{}, Set{}, err
	}
	merged, err := Merge(settings, set)
	if err != nil {
		return release.Settings{}, Set{}, err
	}
	return merged, set, nil
}

// LoadDefinitionDir reads every *.yaml, *.yml and *.go file in dir, sorted
// by path. A missing directory means no plugins.
func LoadDefinitionDir(dir string) ([]DefinitionFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var defs []DefinitionFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(trimmed, entry.Name())
		var fileDefs []DefinitionFile
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			fileDefs, err = LoadDefinitionFile(path)
		case ".go":
			fileDefs, err = LoadGoDefinitionFile(path)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	if len(defs) == 0 {
		return nil, nil
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
	return defs, nil
}
