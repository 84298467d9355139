// internal/config/config.go
//
// This package handles configuration and the .releasekit directory structure.
// Every project that uses releasekit gets a .releasekit/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/releasekit/internal/branch"
	"github.com/kingrea/releasekit/internal/consolidate"
	"github.com/kingrea/releasekit/internal/notes"
	"github.com/kingrea/releasekit/internal/policy"
	"github.com/kingrea/releasekit/internal/release"
	"github.com/kingrea/releasekit/internal/ticket"
)

const (
	// Dir is the name of the directory we create in each project
	Dir = ".releasekit"

	defaultTagPrefix  = "v"
	defaultOutputPath = Dir + "/drafts/{version}.md"
	defaultHost       = "127.0.0.1"
	defaultPort       = 8787
)

// Environment overrides.
const (
	EnvDatabaseURL = "RELEASEKIT_DATABASE_URL"
	EnvAPIHost     = "RELEASEKIT_API_HOST"
	EnvAPIPort     = "RELEASEKIT_API_PORT"
	EnvCodeRepo    = "RELEASEKIT_CODE_REPO"
)

const defaultProjectConfigYAML = `# releasekit project configuration
repository:
  # owner/name of the code repository, used for links and release history.
  code_repo: ""

ticket_policy:
  # Leave patterns empty to use the built-in set. Strategies: branch_name,
  # commit_message, pr_body, pr_title. A (?P<ticket>...) group selects the key.
  patterns: []
  no_ticket_action: warn             # ignore | warn | error
  partial_ticket_action: warn
  inter_release_duplicate_action: warn
  consolidation_enabled: true
  # description_section_regex: '(?:## Description|## Summary)\n(.*?)(?:\n##|\z)'
  # migration_section_regex: '(?:## Migration|## Migration Notes)\n(.*?)(?:\n##|\z)'

version_policy:
  tag_prefix: v
  gap_detection: warn
  # consider: ">=1.0.0-0"
  docs_comparison: final-only        # final-only | include-rcs

branch_policy:
  release_branch_template: release/{major}.{minor}
  default_branch: main
  create_branches: true
  branch_from_previous_release: false

release_notes:
  # categories: leave empty for the built-in set.
  excluded_labels: [skip-changelog, internal, wip, do-not-merge]
  include: [ticket, pull_request, commit]
  title_template: "Release {{ .version }}"
  # entry_template, release_output_template and doc_output_template accept
  # Go templates; <br> forces a blank line and &nbsp; a literal space.
  output_path: .releasekit/drafts/{version}.md

storage:
  # Leave empty to keep history in memory only.
  database_url: ""

server:
  host: 127.0.0.1
  port: 8787
`

// RepositoryConfig identifies the repository being released.
type RepositoryConfig struct {
	CodeRepo string `yaml:"code_repo"`
}

// TicketPolicy configures extraction and ticket related policies.
type TicketPolicy struct {
	Patterns                    []ticket.Pattern `yaml:"patterns"`
	NoTicketAction              policy.Action    `yaml:"no_ticket_action"`
	PartialTicketAction         policy.Action    `yaml:"partial_ticket_action"`
	InterReleaseDuplicateAction policy.Action    `yaml:"inter_release_duplicate_action"`
	ConsolidationEnabled        *bool            `yaml:"consolidation_enabled"`
	DescriptionSectionRegex     string           `yaml:"description_section_regex,omitempty"`
	MigrationSectionRegex       string           `yaml:"migration_section_regex,omitempty"`
}

// VersionPolicy configures tag parsing and comparison.
type VersionPolicy struct {
	TagPrefix      *string       `yaml:"tag_prefix"`
	GapDetection   policy.Action `yaml:"gap_detection"`
	Consider       string        `yaml:"consider,omitempty"`
	DocsComparison string        `yaml:"docs_comparison"`
}

// BranchPolicy configures release branches.
type BranchPolicy struct {
	ReleaseBranchTemplate     string `yaml:"release_branch_template"`
	DefaultBranch             string `yaml:"default_branch"`
	CreateBranches            *bool  `yaml:"create_branches"`
	BranchFromPreviousRelease bool   `yaml:"branch_from_previous_release"`
}

// ReleaseNotes configures note assembly and rendering.
type ReleaseNotes struct {
	Categories            []notes.Category `yaml:"categories"`
	ExcludedLabels        []string         `yaml:"excluded_labels"`
	Include               []string         `yaml:"include"`
	TitleTemplate         string           `yaml:"title_template"`
	EntryTemplate         string           `yaml:"entry_template,omitempty"`
	ReleaseOutputTemplate string           `yaml:"release_output_template,omitempty"`
	DocOutputTemplate     string           `yaml:"doc_output_template,omitempty"`
	OutputPath            string           `yaml:"output_path"`
}

// StorageConfig points at the release history database.
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

// ServerConfig is where the HTTP API listens.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ProjectConfig models .releasekit/config.yaml.
type ProjectConfig struct {
	Repository    RepositoryConfig `yaml:"repository"`
	TicketPolicy  TicketPolicy     `yaml:"ticket_policy"`
	VersionPolicy VersionPolicy    `yaml:"version_policy"`
	BranchPolicy  BranchPolicy     `yaml:"branch_policy"`
	ReleaseNotes  ReleaseNotes     `yaml:"release_notes"`
	Storage       StorageConfig    `yaml:"storage"`
	Server        ServerConfig     `yaml:"server"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// ProjectDir is the directory releasekit was pointed at
	ProjectDir string

	// ProjectStateDir is ProjectDir/.releasekit
	ProjectStateDir string

	Project ProjectConfig
}

// Init creates the .releasekit directory structure and a commented default
// config. Existing files are left alone.
//
// Structure created:
// .releasekit/
// ├── config.yaml
// ├── drafts/   <- Rendered release notes
// ├── logs/     <- releasekit.log
// └── plugins/  <- Extra patterns and categories (*.yaml, *.go)
func Init(projectDir string) error {
	root := filepath.Join(projectDir, Dir)
	for _, dir := range []string{
		filepath.Join(root, "drafts"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "plugins"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// Load reads the project config, applying defaults and environment
// overrides. A missing config file yields the defaults.
func Load(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:      projectDir,
		ProjectStateDir: filepath.Join(projectDir, Dir),
		Project:         defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ProjectStateDir, "logs")
}

// PluginsDir returns the directory scanned for plugin definitions
func (c *Config) PluginsDir() string {
	return filepath.Join(c.ProjectStateDir, "plugins")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ProjectStateDir, "config.yaml")
}

// OutputPath returns the draft path template, resolved against the project
// directory when relative.
func (c *Config) OutputPath() string {
	return resolvePath(c.ProjectDir, c.Project.ReleaseNotes.OutputPath)
}

// TagPrefix returns the version marker stripped from tags.
func (c *Config) TagPrefix() string {
	if c.Project.VersionPolicy.TagPrefix == nil {
		return defaultTagPrefix
	}
	return *c.Project.VersionPolicy.TagPrefix
}

// Settings converts the project config into pipeline settings.
func (c *Config) Settings() (release.Settings, error) {
	return c.Project.settings()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err == nil {
		parsed = ProjectConfig{}
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	parsed.applyDefaults()
	if err := parsed.applyEnv(os.Getenv); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	tp := &pc.TicketPolicy
	if len(tp.Patterns) == 0 {
		tp.Patterns = ticket.DefaultPatterns()
	}
	for _, a := range []*policy.Action{&tp.NoTicketAction, &tp.PartialTicketAction, &tp.InterReleaseDuplicateAction, &pc.VersionPolicy.GapDetection} {
		if *a == "" {
			*a = policy.Warn
		}
	}
	if tp.ConsolidationEnabled == nil {
		enabled := true
		tp.ConsolidationEnabled = &enabled
	}
	if tp.DescriptionSectionRegex == "" {
		tp.DescriptionSectionRegex = notes.DefaultDescriptionPattern
	}
	if tp.MigrationSectionRegex == "" {
		tp.MigrationSectionRegex = notes.DefaultMigrationPattern
	}

	if pc.VersionPolicy.TagPrefix == nil {
		prefix := defaultTagPrefix
		pc.VersionPolicy.TagPrefix = &prefix
	}
	if pc.VersionPolicy.DocsComparison == "" {
		pc.VersionPolicy.DocsComparison = string(branch.DocsFinalOnly)
	}

	bp := &pc.BranchPolicy
	if bp.ReleaseBranchTemplate == "" {
		bp.ReleaseBranchTemplate = branch.DefaultTemplate
	}
	if bp.DefaultBranch == "" {
		bp.DefaultBranch = branch.DefaultDefaultBranch
	}
	if bp.CreateBranches == nil {
		create := true
		bp.CreateBranches = &create
	}

	rn := &pc.ReleaseNotes
	if len(rn.Categories) == 0 {
		rn.Categories = notes.DefaultCategories()
	}
	if rn.ExcludedLabels == nil {
		rn.ExcludedLabels = notes.DefaultExcludedLabels()
	}
	if rn.TitleTemplate == "" {
		rn.TitleTemplate = notes.DefaultTitleTemplate
	}
	if rn.EntryTemplate == "" {
		rn.EntryTemplate = notes.DefaultEntryTemplate
	}
	if rn.ReleaseOutputTemplate == "" {
		rn.ReleaseOutputTemplate = notes.DefaultReleaseTemplate
	}
	if rn.OutputPath == "" {
		rn.OutputPath = defaultOutputPath
	}

	if pc.Server.Host == "" {
		pc.Server.Host = defaultHost
	}
	if pc.Server.Port == 0 {
		pc.Server.Port = defaultPort
	}
}

// applyEnv overlays environment variables. getenv is injected for tests.
func (pc *ProjectConfig) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvDatabaseURL)); v != "" {
		pc.Storage.DatabaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIHost)); v != "" {
		pc.Server.Host = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAPIPort, err)
		}
		pc.Server.Port = port
	}
	if v := strings.TrimSpace(getenv(EnvCodeRepo)); v != "" {
		pc.Repository.CodeRepo = v
	}
	return nil
}

func (pc *ProjectConfig) normalize() {
	pc.Repository.CodeRepo = strings.Trim(strings.TrimSpace(pc.Repository.CodeRepo), "/")
	for i := range pc.TicketPolicy.Patterns {
		p := &pc.TicketPolicy.Patterns[i]
		p.Strategy = ticket.Strategy(strings.ToLower(strings.TrimSpace(string(p.Strategy))))
	}
	pc.VersionPolicy.DocsComparison = strings.ToLower(strings.TrimSpace(pc.VersionPolicy.DocsComparison))
	pc.BranchPolicy.DefaultBranch = strings.TrimSpace(pc.BranchPolicy.DefaultBranch)
	pc.BranchPolicy.ReleaseBranchTemplate = strings.TrimSpace(pc.BranchPolicy.ReleaseBranchTemplate)
	for i := range pc.ReleaseNotes.Categories {
		c := &pc.ReleaseNotes.Categories[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Alias = strings.ToLower(strings.TrimSpace(c.Alias))
	}
	pc.Server.Host = strings.TrimSpace(pc.Server.Host)
}

func (pc *ProjectConfig) validate() error {
	if !strings.Contains(pc.BranchPolicy.ReleaseBranchTemplate, "{major}") || !strings.Contains(pc.BranchPolicy.ReleaseBranchTemplate, "{minor}") {
		return fmt.Errorf("branch_policy.release_branch_template must contain {major} and {minor}")
	}
	names := make(map[string]struct{}, len(pc.ReleaseNotes.Categories))
	for i, c := range pc.ReleaseNotes.Categories {
		if c.Name == "" {
			return fmt.Errorf("release_notes.categories[%d]: name is required", i)
		}
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("release_notes.categories[%d]: duplicate name %q", i, c.Name)
		}
		names[c.Name] = struct{}{}
	}
	if pc.Server.Port < 0 || pc.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", pc.Server.Port)
	}
	s, err := pc.settings()
	if err != nil {
		return err
	}
	if _, err := release.NewPlanner(s); err != nil {
		return err
	}
	return nil
}

func (pc *ProjectConfig) settings() (release.Settings, error) {
	docs, err := branch.ParseDocsPolicy(pc.VersionPolicy.DocsComparison)
	if err != nil {
		return release.Settings{}, fmt.Errorf("version_policy.docs_comparison: %w", err)
	}
	var include []consolidate.Kind
	for i, raw := range pc.ReleaseNotes.Include {
		kind, err := consolidate.ParseKind(raw)
		if err != nil {
			return release.Settings{}, fmt.Errorf("release_notes.include[%d]: %w", i, err)
		}
		include = append(include, kind)
	}
	tp := pc.TicketPolicy
	return release.Settings{
		Patterns:            append([]ticket.Pattern(nil), tp.Patterns...),
		Consolidation:       tp.ConsolidationEnabled == nil || *tp.ConsolidationEnabled,
		Include:             include,
		NoTicketAction:      tp.NoTicketAction,
		PartialTicketAction: tp.PartialTicketAction,
		DuplicateAction:     tp.InterReleaseDuplicateAction,
		GapAction:           pc.VersionPolicy.GapDetection,
		Consider:            pc.VersionPolicy.Consider,
		DocsPolicy:          docs,
		Branch: branch.Strategy{
			Template:      pc.BranchPolicy.ReleaseBranchTemplate,
			DefaultBranch: pc.BranchPolicy.DefaultBranch,
			FromPrevious:  pc.BranchPolicy.BranchFromPreviousRelease,
		},
		CreateBranches: pc.BranchPolicy.CreateBranches == nil || *pc.BranchPolicy.CreateBranches,
		Assembler: notes.AssemblerConfig{
			Categories:         append([]notes.Category(nil), pc.ReleaseNotes.Categories...),
			ExcludedLabels:     append([]string{}, pc.ReleaseNotes.ExcludedLabels...),
			DescriptionPattern: tp.DescriptionSectionRegex,
			MigrationPattern:   tp.MigrationSectionRegex,
		},
		Templates: notes.Templates{
			Title:   pc.ReleaseNotes.TitleTemplate,
			Entry:   pc.ReleaseNotes.EntryTemplate,
			Release: pc.ReleaseNotes.ReleaseOutputTemplate,
			Doc:     pc.ReleaseNotes.DocOutputTemplate,
		},
	}, nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
