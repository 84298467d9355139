// Package notes turns consolidated changes into categorized release notes
// and renders them through the entry, release and doc templates.
package notes

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/kingrea/releasekit/internal/consolidate"
	"github.com/kingrea/releasekit/internal/model"
)

const (
	// DefaultDescriptionPattern captures the Description or Summary section of a ticket body.
	DefaultDescriptionPattern = `(?:## Description|## Summary)\n(.*?)(?:\n##|\z)`
	// DefaultMigrationPattern captures the Migration section of a ticket body.
	DefaultMigrationPattern = `(?:## Migration|## Migration Notes)\n(.*?)(?:\n##|\z)`

	fallbackTitle = "Unknown change"
)

// Note is the read-only release-note view of one change.
type Note struct {
	TicketKey      string         `json:"ticket_key,omitempty"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	MigrationNotes string         `json:"migration_notes,omitempty"`
	Category       string         `json:"category"`
	Labels         []string       `json:"labels,omitempty"`
	Authors        []model.Author `json:"authors,omitempty"`
	URL            string         `json:"url,omitempty"`
	TicketURL      string         `json:"ticket_url,omitempty"`
	PRURL          string         `json:"pr_url,omitempty"`
	ShortLink      string         `json:"short_link,omitempty"`
	ShortRepoLink  string         `json:"short_repo_link,omitempty"`
	PRNumbers      []int          `json:"pr_numbers,omitempty"`
	CommitIDs      []string       `json:"commit_ids,omitempty"`
}

// Group is one category bucket of notes.
type Group struct {
	Category Category `json:"category"`
	Notes    []Note   `json:"notes"`
}

// AssemblerConfig holds the configuration note assembly needs.
type AssemblerConfig struct {
	Categories         []Category
	ExcludedLabels     []string
	DescriptionPattern string
	MigrationPattern   string
}

// Assembler builds notes from consolidated changes.
type Assembler struct {
	categories  []Category
	excluded    sets.Set[string]
	description *regexp.Regexp
	migration   *regexp.Regexp
}

// NewAssembler compiles the section patterns. Empty fields fall back to the
// defaults.
func NewAssembler(cfg AssemblerConfig) (*Assembler, error) {
	if cfg.Categories == nil {
		cfg.Categories = DefaultCategories()
	}
	if cfg.ExcludedLabels == nil {
		cfg.ExcludedLabels = DefaultExcludedLabels()
	}
	if strings.TrimSpace(cfg.DescriptionPattern) == "" {
		cfg.DescriptionPattern = DefaultDescriptionPattern
	}
	if strings.TrimSpace(cfg.MigrationPattern) == "" {
		cfg.MigrationPattern = DefaultMigrationPattern
	}
	description, err := compileSection(cfg.DescriptionPattern)
	if err != nil {
		return nil, fmt.Errorf("notes: description pattern: %w", err)
	}
	migration, err := compileSection(cfg.MigrationPattern)
	if err != nil {
		return nil, fmt.Errorf("notes: migration pattern: %w", err)
	}
	excluded := sets.New[string]()
	for _, l := range cfg.ExcludedLabels {
		excluded.Insert(strings.ToLower(strings.TrimSpace(l)))
	}
	return &Assembler{
		categories:  append([]Category(nil), cfg.Categories...),
		excluded:    excluded,
		description: description,
		migration:   migration,
	}, nil
}

// compileSection makes section patterns case-insensitive and dot-all.
func compileSection(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?is)" + pattern)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("pattern %q needs a capture group", pattern)
	}
	return re, nil
}

// Categories returns the configured categories in their defined order.
func (a *Assembler) Categories() []Category {
	return append([]Category(nil), a.categories...)
}

// CreateNote builds the note for change. t overrides the ticket attached to
// the change when non-nil.
func (a *Assembler) CreateNote(change consolidate.Change, t *model.Ticket) Note {
	if t == nil {
		t = change.Ticket
	}
	note := Note{
		Title:     noteTitle(change, t),
		Category:  a.category(change, t),
		Labels:    noteLabels(change, t),
		Authors:   mergeAuthors(change),
		PRNumbers: prNumbers(change),
	}
	if change.Kind == consolidate.KindTicket {
		note.TicketKey = change.Key
	}
	for _, c := range change.Commits {
		note.CommitIDs = append(note.CommitIDs, c.ID)
	}
	if t != nil {
		note.Description = extractSection(a.description, t.Body)
		note.MigrationNotes = extractSection(a.migration, t.Body)
		note.TicketURL = t.URL
	}
	if len(change.PullRequests) > 0 {
		note.PRURL = change.PullRequests[0].URL
	}
	note.URL = note.TicketURL
	if note.URL == "" {
		note.URL = note.PRURL
	}
	note.ShortLink, note.ShortRepoLink = ShortLinks(note.URL)
	return note
}

func noteTitle(change consolidate.Change, t *model.Ticket) string {
	if t != nil && strings.TrimSpace(t.Title) != "" {
		return strings.TrimSpace(t.Title)
	}
	if len(change.PullRequests) > 0 && strings.TrimSpace(change.PullRequests[0].Title) != "" {
		return strings.TrimSpace(change.PullRequests[0].Title)
	}
	if len(change.Commits) > 0 {
		if subject := change.Commits[0].Subject(); subject != "" {
			return subject
		}
	}
	return fallbackTitle
}

// category checks ticket labels then pull request labels against each
// category in turn; the first match wins.
func (a *Assembler) category(change consolidate.Change, t *model.Ticket) string {
	var ticketLabels []string
	if t != nil {
		ticketLabels = model.SortedLabels(t.Labels)
	}
	var prLabels []string
	for _, pr := range change.PullRequests {
		prLabels = append(prLabels, model.SortedLabels(pr.Labels)...)
	}
	for _, c := range a.categories {
		for _, l := range ticketLabels {
			if c.Matches(l, SourceTicket) {
				return c.Name
			}
		}
		for _, l := range prLabels {
			if c.Matches(l, SourcePR) {
				return c.Name
			}
		}
	}
	return OtherCategory
}

func noteLabels(change consolidate.Change, t *model.Ticket) []string {
	if t != nil {
		return model.SortedLabels(t.Labels)
	}
	all := sets.New[string]()
	for _, pr := range change.PullRequests {
		all = all.Union(pr.Labels)
	}
	if all.Len() == 0 {
		return nil
	}
	return sets.List(all)
}

func prNumbers(change consolidate.Change) []int {
	var out []int
	for _, pr := range change.PullRequests {
		out = append(out, pr.Number)
	}
	sort.Ints(out)
	return out
}

func extractSection(re *regexp.Regexp, body string) string {
	if re == nil || body == "" {
		return ""
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var forgeLink = regexp.MustCompile(`^https?://[^/]+/([^/]+/[^/]+)/(?:issues|pull|pulls|merge_requests)/(\d+)`)

// ShortLinks derives "#n" and "owner/repo#n" from an issue or pull request URL.
func ShortLinks(url string) (short, repo string) {
	m := forgeLink.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", ""
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", ""
	}
	return "#" + strconv.Itoa(n), m[1] + "#" + strconv.Itoa(n)
}

// GroupByCategory drops notes carrying an excluded label and buckets the
// rest. Every configured category gets a group, ordered by Order; notes in
// an unconfigured category land in trailing groups in first-seen order.
func (a *Assembler) GroupByCategory(notes []Note) []Group {
	cats := ordered(a.categories)
	groups := make([]Group, 0, len(cats)+1)
	index := make(map[string]int, len(cats))
	for _, c := range cats {
		if _, dup := index[c.Name]; dup {
			continue
		}
		index[c.Name] = len(groups)
		groups = append(groups, Group{Category: c, Notes: []Note{}})
	}
	for _, note := range notes {
		if a.isExcluded(note) {
			continue
		}
		name := note.Category
		if name == "" {
			name = OtherCategory
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Category: Category{Name: name, Order: len(groups) + 1000}, Notes: []Note{}})
		}
		groups[i].Notes = append(groups[i].Notes, note)
	}
	return groups
}

func (a *Assembler) isExcluded(note Note) bool {
	for _, l := range note.Labels {
		if a.excluded.Has(strings.ToLower(l)) {
			return true
		}
	}
	return false
}
