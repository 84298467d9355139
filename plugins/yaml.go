package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefinitionFile pairs a parsed definition with its on-disk source.
type DefinitionFile struct {
	Definition Definition
	Path       string
}

// ParseDefinitionYAML decodes and validates a single definition payload.
func ParseDefinitionYAML(data []byte) (Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Definition{}, fmt.Errorf("plugin: definition payload is empty")
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return Definition{}, fmt.Errorf("plugin: decode definition: %w", err)
	}
	return decodeDefinition(&node)
}

// decodeDefinition is the single decode path for YAML documents and the
// values returned by Go plugins.
func decodeDefinition(node *yaml.Node) (Definition, error) {
	var def Definition
	if err := node.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("plugin: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def.Normalized(), nil
}

// ParseDefinitionsYAML decodes every document of a multi-document stream.
func ParseDefinitionsYAML(data []byte) ([]Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var defs []Definition
	for idx := 0; ; idx++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("plugin: decode document %d: %w", idx+1, err)
		}
		def, err := decodeDefinition(&node)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", idx+1, err)
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("plugin: definition payload is empty")
	}
	return defs, nil
}

// LoadDefinitionFile reads a YAML file from disk. Each document becomes one
// DefinitionFile; the path of the second and later documents carries a
// #n suffix.
func LoadDefinitionFile(path string) ([]DefinitionFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("plugin: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	defs, err := ParseDefinitionsYAML(data)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	clean := filepath.Clean(path)
	files := make([]DefinitionFile, 0, len(defs))
	for idx, def := range defs {
		source := clean
		if idx > 0 {
			source = fmt.Sprintf("%s#%d", clean, idx+1)
		}
		files = append(files, DefinitionFile{Definition: def, Path: source})
	}
	return files, nil
}
