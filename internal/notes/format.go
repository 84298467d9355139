package notes

import (
	"strings"
	"text/template"

	"github.com/kingrea/releasekit/internal/render"
	"github.com/kingrea/releasekit/internal/version"
)

const DefaultTitleTemplate = "Release {{ .version }}"

const DefaultEntryTemplate = `- {{ .title }}{{ if .short_repo_link }} {{ .short_repo_link }}{{ end }}
{{- if .authors }} by {{ range $i, $a := .authors }}{{ if $i }}, {{ end }}{{ $a.mention }}{{ end }}{{ end }}`

const DefaultReleaseTemplate = `{{ if .breaking }}## Breaking Changes<br>
{{ range .breaking }}### {{ .title }}<br>
{{ .description }}<br>
{{ if .url }}See [{{ default .url .short_link }}]({{ .url }}) for details.<br>{{ end }}
{{ end }}{{ end }}
{{ if .migrations }}## Migrations<br>
{{ range .migrations }}### {{ .title }}<br>
{{ .migration_notes }}<br>
{{ if .url }}See [{{ default .url .short_link }}]({{ .url }}) for details.<br>{{ end }}
{{ end }}{{ end }}
{{ if .highlights }}## Highlights<br>
{{ range .highlights }}### {{ .title }}<br>
{{ .description }}<br>
{{ if .url }}See [{{ default .url .short_link }}]({{ .url }}) for details.<br>{{ end }}
{{ end }}{{ end }}
## All Changes<br>
{{ range .categories }}### {{ .name }}<br>
{{ range .notes }}{{ render_entry . }}
{{ end }}<br>
{{ end }}`

// BreakingAlias marks the category whose described notes are promoted to
// the breaking section.
const BreakingAlias = "breaking"

// Template variable sets, used to validate configured templates.
var (
	TitleVariables   = []string{"version", "major", "minor", "patch"}
	EntryVariables   = []string{"title", "url", "ticket_url", "pr_url", "short_link", "short_repo_link", "pr_numbers", "authors", "description", "migration_notes", "labels", "ticket_key", "category", "commit_ids"}
	ReleaseVariables = []string{"version", "title", "categories", "all_notes", "breaking", "migrations", "highlights"}
)

// Templates holds the configured template sources.
type Templates struct {
	Title   string
	Entry   string
	Release string
	// Doc is optional; when empty no documentation output is produced.
	Doc string
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() Templates {
	return Templates{Title: DefaultTitleTemplate, Entry: DefaultEntryTemplate, Release: DefaultReleaseTemplate}
}

// Output is the rendered result of one release.
type Output struct {
	Title   string `json:"title"`
	Release string `json:"release"`
	Doc     string `json:"doc,omitempty"`
}

// Formatter renders groups of notes through the configured templates.
type Formatter struct {
	templates Templates
}

// NewFormatter fills missing title and entry templates with defaults. An
// empty release template selects the plain heading layout.
func NewFormatter(t Templates) *Formatter {
	if strings.TrimSpace(t.Title) == "" {
		t.Title = DefaultTitleTemplate
	}
	if strings.TrimSpace(t.Entry) == "" {
		t.Entry = DefaultEntryTemplate
	}
	return &Formatter{templates: t}
}

// ValidateTemplates checks that each template parses and reads only the
// variables its layer provides.
func ValidateTemplates(t Templates) error {
	stubs := template.FuncMap{
		"render_entry":         func(map[string]any) (string, error) { return "", nil },
		"render_release_notes": func() string { return "" },
	}
	if t.Title != "" {
		if err := render.Validate("title", t.Title, TitleVariables, nil); err != nil {
			return err
		}
	}
	if t.Entry != "" {
		if err := render.Validate("entry", t.Entry, EntryVariables, nil); err != nil {
			return err
		}
	}
	if t.Release != "" {
		if err := render.Validate("release", t.Release, ReleaseVariables, stubs); err != nil {
			return err
		}
	}
	if t.Doc != "" {
		if err := render.Validate("doc", t.Doc, ReleaseVariables, stubs); err != nil {
			return err
		}
	}
	return nil
}

// Title renders the release title for v.
func (f *Formatter) Title(v version.Version) (string, error) {
	out, err := render.Render("title", f.templates.Title, map[string]any{
		"version": v.String(),
		"major":   v.Major,
		"minor":   v.Minor,
		"patch":   v.Patch,
	}, nil)
	if err != nil {
		return "", err
	}
	return render.Finish(out), nil
}

// Entry renders a single note through the entry template.
func (f *Formatter) Entry(note Note) (string, error) {
	out, err := f.entry(NoteData(note))
	if err != nil {
		return "", err
	}
	return render.Expand(out), nil
}

// entry renders and normalizes one note, keeping protected markers so the
// result can be embedded in an outer layer.
func (f *Formatter) entry(data map[string]any) (string, error) {
	out, err := render.Render("entry", f.templates.Entry, data, nil)
	if err != nil {
		return "", err
	}
	return render.Normalize(out), nil
}

// Format renders the title, the release notes and, when configured, the
// documentation output. Any template failure aborts the whole render.
func (f *Formatter) Format(v version.Version, groups []Group) (Output, error) {
	title, err := f.Title(v)
	if err != nil {
		return Output{}, err
	}

	data := map[string]any{"version": v.String(), "title": title}
	var (
		categories []map[string]any
		all        []map[string]any
		breaking   []map[string]any
		migrations []map[string]any
		highlights []map[string]any
	)
	for _, g := range groups {
		if len(g.Notes) == 0 {
			continue
		}
		notes := make([]map[string]any, 0, len(g.Notes))
		for _, n := range g.Notes {
			nd := NoteData(n)
			notes = append(notes, nd)
			all = append(all, nd)
			if n.Description != "" {
				if g.Category.Alias == BreakingAlias {
					breaking = append(breaking, nd)
				} else {
					highlights = append(highlights, nd)
				}
			}
			if n.MigrationNotes != "" {
				migrations = append(migrations, nd)
			}
		}
		categories = append(categories, map[string]any{
			"name":  g.Category.Name,
			"alias": g.Category.Alias,
			"notes": notes,
		})
	}
	data["categories"] = categories
	data["all_notes"] = all
	data["breaking"] = breaking
	data["migrations"] = migrations
	data["highlights"] = highlights

	funcs := template.FuncMap{"render_entry": f.entry}

	var release string
	if strings.TrimSpace(f.templates.Release) == "" {
		release, err = f.headingLayout(title, categories)
	} else {
		var raw string
		raw, err = render.Render("release", f.templates.Release, data, funcs)
		release = render.Normalize(raw)
	}
	if err != nil {
		return Output{}, err
	}

	out := Output{Title: title, Release: render.Expand(release)}
	if strings.TrimSpace(f.templates.Doc) == "" {
		return out, nil
	}
	funcs["render_release_notes"] = func() string { return release }
	raw, err := render.Render("doc", f.templates.Doc, data, funcs)
	if err != nil {
		return Output{}, err
	}
	out.Doc = render.Expand(render.Normalize(raw))
	return out, nil
}

// headingLayout is used when no release template is configured.
func (f *Formatter) headingLayout(title string, categories []map[string]any) (string, error) {
	var b strings.Builder
	b.WriteString("# " + title + "<br>\n")
	for _, c := range categories {
		b.WriteString("## " + c["name"].(string) + "<br>\n")
		for _, nd := range c["notes"].([]map[string]any) {
			entry, err := f.entry(nd)
			if err != nil {
				return "", err
			}
			b.WriteString(entry + "\n")
		}
		b.WriteString("<br>\n")
	}
	return render.Normalize(b.String()), nil
}

// NoteData exposes a note to templates.
func NoteData(n Note) map[string]any {
	authors := make([]map[string]any, 0, len(n.Authors))
	for _, a := range n.Authors {
		authors = append(authors, map[string]any{
			"name":         a.Name,
			"email":        a.Email,
			"username":     a.Username,
			"display_name": a.Display(),
			"mention":      a.Mention(),
			"identifier":   a.Identifier(),
			"profile_url":  a.ProfileURL,
		})
	}
	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	prs := n.PRNumbers
	if prs == nil {
		prs = []int{}
	}
	commits := n.CommitIDs
	if commits == nil {
		commits = []string{}
	}
	return map[string]any{
		"title":           n.Title,
		"url":             n.URL,
		"ticket_url":      n.TicketURL,
		"pr_url":          n.PRURL,
		"short_link":      n.ShortLink,
		"short_repo_link": n.ShortRepoLink,
		"pr_numbers":      prs,
		"authors":         authors,
		"description":     n.Description,
		"migration_notes": n.MigrationNotes,
		"labels":          labels,
		"ticket_key":      n.TicketKey,
		"category":        n.Category,
		"commit_ids":      commits,
	}
}
