package notes

import (
	"sort"
	"strings"
)

// OtherCategory receives notes no category claims.
const OtherCategory = "Other"

// Label sources a matcher can be restricted to.
const (
	SourcePR     = "pr"
	SourceTicket = "ticket"
)

// Category is a named bucket of release notes selected by labels. A label
// matcher may be scoped with a "pr:" or "ticket:" prefix.
type Category struct {
	Name   string   `yaml:"name" json:"name"`
	Labels []string `yaml:"labels" json:"labels"`
	Order  int      `yaml:"order" json:"order"`
	Alias  string   `yaml:"alias,omitempty" json:"alias,omitempty"`
}

// DefaultCategories returns the built-in category set.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Breaking Changes", Labels: []string{"breaking-change", "breaking"}, Order: 1, Alias: "breaking"},
		{Name: "Features", Labels: []string{"feature", "enhancement", "feat"}, Order: 2, Alias: "features"},
		{Name: "Bug Fixes", Labels: []string{"bug", "fix", "bugfix", "hotfix"}, Order: 3, Alias: "bugfixes"},
		{Name: "Documentation", Labels: []string{"docs", "documentation"}, Order: 4, Alias: "docs"},
		{Name: "Security Updates", Labels: []string{"security"}, Order: 5, Alias: "security"},
		{Name: "Other Changes", Labels: nil, Order: 99, Alias: "other"},
	}
}

// DefaultExcludedLabels returns the labels that keep a note out of the output.
func DefaultExcludedLabels() []string {
	return []string{"skip-changelog", "internal", "wip", "do-not-merge"}
}

// Matches reports whether label from source satisfies one of the matchers.
func (c Category) Matches(label, source string) bool {
	for _, matcher := range c.Labels {
		scope, name := splitMatcher(matcher)
		if scope != "" && scope != source {
			continue
		}
		if strings.EqualFold(name, strings.TrimSpace(label)) {
			return true
		}
	}
	return false
}

func splitMatcher(matcher string) (scope, name string) {
	matcher = strings.TrimSpace(matcher)
	if prefix, rest, ok := strings.Cut(matcher, ":"); ok {
		switch strings.ToLower(prefix) {
		case SourcePR, SourceTicket:
			return strings.ToLower(prefix), strings.TrimSpace(rest)
		}
	}
	return "", matcher
}

// ordered returns categories sorted by Order, keeping definition order for
// ties.
func ordered(categories []Category) []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
