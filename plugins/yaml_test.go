package plugins

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDefinitions = `kind: pattern
order: 10
strategy: commit_message
pattern: 'GH-(?P<ticket>\d+)'
description: GitHub style keys
---
kind: category
name: Performance
order: 6
labels: [perf, "pr:speed"]
`

func TestParseDefinitionYAML(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte("kind: category\nname: ' Performance '\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Kind != KindCategory || def.Name != "Performance" {
		t.Fatalf("unexpected definition: %+v", def)
	}
}

func TestParseDefinitionYAMLErrors(t *testing.T) {
	if _, err := ParseDefinitionYAML([]byte("")); err == nil {
		t.Fatalf("expected empty payload to fail validation")
	}
	if _, err := ParseDefinitionsYAML([]byte("kind: pattern\n---\nkind: category\nname: x\n")); err == nil {
		t.Fatalf("expected invalid first document to fail")
	}
}

func TestLoadDefinitionDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "plugin.yaml")
	if err := os.WriteFile(path, []byte(sampleDefinitions), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("write readme: %v", err)
	}
	defs, err := LoadDefinitionDir(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Path != path || defs[1].Path != path+"#2" {
		t.Fatalf("unexpected paths %s, %s", defs[0].Path, defs[1].Path)
	}
	if defs[0].Definition.Kind != KindPattern || defs[1].Definition.Name != "Performance" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
}

func TestLoadDefinitionDirMissing(t *testing.T) {
	defs, err := LoadDefinitionDir(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if defs != nil {
		t.Fatalf("expected nil slice for missing dir, got %v", defs)
	}
}
