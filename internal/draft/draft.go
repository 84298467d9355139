// Package draft writes rendered release notes to disk with a YAML front
// matter block describing how they were produced, and reads them back.
package draft

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/releasekit/internal/release"
	"github.com/kingrea/releasekit/internal/version"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("draft: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("draft: malformed frontmatter")
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// Meta describes a rendered draft.
type Meta struct {
	Repository  string
	Version     string
	Title       string
	Comparison  string
	Branch      string
	GeneratedAt time.Time
	Diagnostics int
}

// Draft is one rendered release note document.
type Draft struct {
	Meta Meta
	Body string
	// Doc is the documentation rendering; it is written after the release
	// body, separated by a horizontal rule.
	Doc string
}

// FromResult captures a planning result.
func FromResult(repo string, res release.Result, generatedAt time.Time) Draft {
	meta := Meta{
		Repository:  repo,
		Version:     res.Target.String(),
		Title:       res.Output.Title,
		Branch:      res.Branch.Name,
		GeneratedAt: generatedAt.UTC(),
		Diagnostics: len(res.Diagnostics),
	}
	if res.Comparison != nil {
		meta.Comparison = res.Comparison.String()
	}
	return Draft{Meta: meta, Body: res.Output.Release, Doc: res.Output.Doc}
}

// Path expands {version}, {major}, {minor} and {patch} in template.
func Path(template string, v version.Version) string {
	return strings.NewReplacer(
		"{version}", v.String(),
		"{major}", strconv.Itoa(v.Major),
		"{minor}", strconv.Itoa(v.Minor),
		"{patch}", strconv.Itoa(v.Patch),
	).Replace(template)
}

const docSeparator = "\n\n---\n\n"

// Encode renders the front matter and body.
func Encode(d Draft) ([]byte, error) {
	if strings.TrimSpace(d.Meta.Version) == "" {
		return nil, fmt.Errorf("draft: metadata missing version")
	}
	envelope := releasekitEnvelope{}
	envelope.fromMeta(d.Meta)
	data, err := yaml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("draft: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.WriteString(strings.TrimRight(d.Body, "\n"))
	if strings.TrimSpace(d.Doc) != "" {
		buf.WriteString(docSeparator)
		buf.WriteString(strings.TrimRight(d.Doc, "\n"))
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Decode parses a document produced by Encode.
func Decode(content []byte) (Draft, error) {
	if len(content) == 0 {
		return Draft{}, ErrMissingFrontMatter
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Draft{}, ErrMissingFrontMatter
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Draft{}, ErrMalformedFrontMatter
	}
	var envelope releasekitEnvelope
	if err := yaml.Unmarshal(parts[0], &envelope); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	meta, err := envelope.toMeta()
	if err != nil {
		return Draft{}, err
	}
	body := strings.Trim(string(parts[1]), "\n")
	d := Draft{Meta: meta, Body: body}
	if rel, doc, ok := strings.Cut(body, docSeparator); ok {
		d.Body = rel
		d.Doc = doc
	}
	return d, nil
}

// Write encodes d to path, creating parent directories. The file is
// replaced atomically.
func Write(path string, d Draft) error {
	content, err := Encode(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("draft: ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".draft-*")
	if err != nil {
		return fmt.Errorf("draft: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("draft: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("draft: write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("draft: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("draft: replace %s: %w", path, err)
	}
	return nil
}

// Read loads and decodes the draft at path.
func Read(path string) (Draft, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Draft{}, fmt.Errorf("draft: read %s: %w", path, err)
	}
	d, err := Decode(content)
	if err != nil {
		return Draft{}, fmt.Errorf("draft: %s: %w", path, err)
	}
	return d, nil
}

type releasekitEnvelope struct {
	Releasekit releasekitMeta `yaml:"releasekit"`
}

type releasekitMeta struct {
	Repository  string `yaml:"repository,omitempty"`
	Version     string `yaml:"version"`
	Title       string `yaml:"title,omitempty"`
	Comparison  string `yaml:"comparison,omitempty"`
	Branch      string `yaml:"branch,omitempty"`
	GeneratedAt string `yaml:"generated_at"`
	Diagnostics int    `yaml:"diagnostics"`
}

func (e releasekitEnvelope) toMeta() (Meta, error) {
	if e.Releasekit.Version == "" {
		return Meta{}, ErrMalformedFrontMatter
	}
	generated, err := parseTime(e.Releasekit.GeneratedAt)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: generated_at: %v", ErrMalformedFrontMatter, err)
	}
	return Meta{
		Repository:  e.Releasekit.Repository,
		Version:     e.Releasekit.Version,
		Title:       e.Releasekit.Title,
		Comparison:  e.Releasekit.Comparison,
		Branch:      e.Releasekit.Branch,
		GeneratedAt: generated,
		Diagnostics: e.Releasekit.Diagnostics,
	}, nil
}

func (e *releasekitEnvelope) fromMeta(meta Meta) {
	e.Releasekit = releasekitMeta{
		Repository:  meta.Repository,
		Version:     meta.Version,
		Title:       meta.Title,
		Comparison:  meta.Comparison,
		Branch:      meta.Branch,
		GeneratedAt: meta.GeneratedAt.UTC().Format(timeLayout),
		Diagnostics: meta.Diagnostics,
	}
}

func parseTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
