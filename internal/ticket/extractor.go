// Package ticket extracts ticket keys from commit messages, branch names and
// pull requests using ordered, strategy-tagged regular expressions.
package ticket

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kingrea/releasekit/internal/model"
)

// Strategy selects which text a pattern is applied to.
type Strategy string

const (
	StrategyBranchName    Strategy = "branch_name"
	StrategyCommitMessage Strategy = "commit_message"
	StrategyPRBody        Strategy = "pr_body"
	StrategyPRTitle       Strategy = "pr_title"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyBranchName, StrategyCommitMessage, StrategyPRBody, StrategyPRTitle:
		return true
	}
	return false
}

// Pattern is one configured extraction rule.
type Pattern struct {
	Order       int      `yaml:"order" json:"order"`
	Strategy    Strategy `yaml:"strategy" json:"strategy"`
	Pattern     string   `yaml:"pattern" json:"pattern"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// DefaultPatterns returns the built-in extraction rules.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Order: 1, Strategy: StrategyBranchName, Pattern: `/(?P<repo>\w+)-(?P<ticket>\d+)`, Description: "Branch names like feat/meta-123/main"},
		{Order: 2, Strategy: StrategyPRBody, Pattern: `Parent issue:.*?/issues/(?P<ticket>\d+)`, Description: "Parent issue link in the PR description"},
		{Order: 3, Strategy: StrategyPRTitle, Pattern: `#(?P<ticket>\d+)`, Description: "Issue reference in the PR title"},
		{Order: 4, Strategy: StrategyCommitMessage, Pattern: `#(?P<ticket>\d+)`, Description: "Issue reference in the commit message"},
		{Order: 5, Strategy: StrategyCommitMessage, Pattern: `(?P<project>[A-Z]+)-(?P<ticket>\d+)`, Description: "JIRA style keys"},
	}
}

type compiledPattern struct {
	Pattern
	re     *regexp.Regexp
	ticket int
}

// prText selects the pull request field a strategy reads. Strategies with no
// entry never match a pull request.
var prText = map[Strategy]func(model.PullRequest) string{
	StrategyPRBody:     func(pr model.PullRequest) string { return pr.Body },
	StrategyPRTitle:    func(pr model.PullRequest) string { return pr.Title },
	StrategyBranchName: func(pr model.PullRequest) string { return pr.HeadBranch },
}

// Extractor applies a compiled pattern set. It is immutable and safe for
// concurrent use.
type Extractor struct {
	ordered    []compiledPattern
	byStrategy map[Strategy][]compiledPattern
}

// NewExtractor compiles patterns and orders them ascending by Order.
func NewExtractor(patterns []Pattern) (*Extractor, error) {
	ordered := make([]compiledPattern, 0, len(patterns))
	for i, p := range patterns {
		if !p.Strategy.Valid() {
			return nil, fmt.Errorf("ticket: patterns[%d]: unknown strategy %q", i, p.Strategy)
		}
		if strings.TrimSpace(p.Pattern) == "" {
			return nil, fmt.Errorf("ticket: patterns[%d]: pattern is required", i)
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("ticket: patterns[%d]: compile %q: %w", i, p.Pattern, err)
		}
		ordered = append(ordered, compiledPattern{Pattern: p, re: re, ticket: re.SubexpIndex("ticket")})
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	byStrategy := make(map[Strategy][]compiledPattern)
	for _, cp := range ordered {
		byStrategy[cp.Strategy] = append(byStrategy[cp.Strategy], cp)
	}
	return &Extractor{ordered: ordered, byStrategy: byStrategy}, nil
}

// Patterns returns the configured patterns in evaluation order.
func (e *Extractor) Patterns() []Pattern {
	out := make([]Pattern, 0, len(e.ordered))
	for _, cp := range e.ordered {
		out = append(out, cp.Pattern)
	}
	return out
}

// FromCommitMessage returns every key matched by any commit_message pattern.
func (e *Extractor) FromCommitMessage(text string) []string {
	return e.union(StrategyCommitMessage, text)
}

// FromBranchName returns every key matched by any branch_name pattern.
func (e *Extractor) FromBranchName(text string) []string {
	return e.union(StrategyBranchName, text)
}

// FromPullRequest walks all patterns in order and returns the keys of the
// first pattern that matches the pull request text for its strategy.
func (e *Extractor) FromPullRequest(pr model.PullRequest) []string {
	for _, cp := range e.ordered {
		field, ok := prText[cp.Strategy]
		if !ok {
			continue
		}
		text := field(pr)
		if text == "" {
			continue
		}
		var keys orderedSet
		cp.collect(text, &keys)
		if len(keys.items) > 0 {
			return keys.items
		}
	}
	return nil
}

func (e *Extractor) union(strategy Strategy, text string) []string {
	if text == "" {
		return nil
	}
	var keys orderedSet
	for _, cp := range e.byStrategy[strategy] {
		cp.collect(text, &keys)
	}
	return keys.items
}

func (cp compiledPattern) collect(text string, into *orderedSet) {
	for _, m := range cp.re.FindAllStringSubmatchIndex(text, -1) {
		if key := cp.key(text, m); key != "" {
			into.add(key)
		}
	}
}

// key prefers the named "ticket" group, then group 1, then the whole match.
func (cp compiledPattern) key(text string, m []int) string {
	group := func(i int) (string, bool) {
		if 2*i+1 >= len(m) || m[2*i] < 0 {
			return "", false
		}
		return text[m[2*i]:m[2*i+1]], true
	}
	if cp.ticket > 0 {
		if v, ok := group(cp.ticket); ok {
			return v
		}
	}
	if cp.re.NumSubexp() >= 1 {
		if v, ok := group(1); ok {
			return v
		}
	}
	v, _ := group(0)
	return v
}

type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
