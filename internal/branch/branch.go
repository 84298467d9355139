// Package branch decides which release branch a version is published from
// and which earlier version it is compared against.
package branch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kingrea/releasekit/internal/version"
)

const (
	DefaultTemplate      = "release/{major}.{minor}"
	DefaultDefaultBranch = "main"
)

// Strategy configures release branch selection.
type Strategy struct {
	Template      string
	DefaultBranch string
	FromPrevious  bool
}

// DefaultStrategy branches release lines from the previous release branch.
func DefaultStrategy() Strategy {
	return Strategy{Template: DefaultTemplate, DefaultBranch: DefaultDefaultBranch, FromPrevious: true}
}

func (s Strategy) withDefaults() Strategy {
	if strings.TrimSpace(s.Template) == "" {
		s.Template = DefaultTemplate
	}
	if strings.TrimSpace(s.DefaultBranch) == "" {
		s.DefaultBranch = DefaultDefaultBranch
	}
	return s
}

// Plan is the branch decision for one target version.
type Plan struct {
	Name         string `json:"branch"`
	Source       string `json:"source"`
	ShouldCreate bool   `json:"should_create"`
}

// HeadRef is the ref release commits are read from: the source while the
// branch does not exist yet, else the branch itself.
func (p Plan) HeadRef() string {
	if p.ShouldCreate {
		return p.Source
	}
	return p.Name
}

// RenderBranchName substitutes {major}, {minor} and {patch}.
func RenderBranchName(template string, v version.Version) string {
	return strings.NewReplacer(
		"{major}", strconv.Itoa(v.Major),
		"{minor}", strconv.Itoa(v.Minor),
		"{patch}", strconv.Itoa(v.Patch),
	).Replace(template)
}

// DetermineReleaseBranch picks the release branch for target, where it
// branches from, and whether it still has to be created.
func DetermineReleaseBranch(target version.Version, knownBranches []string, knownVersions []version.Version, strategy Strategy) Plan {
	strategy = strategy.withDefaults()
	name := RenderBranchName(strategy.Template, target)

	for _, v := range knownVersions {
		if v.SameLine(target) {
			return Plan{Name: name, Source: name, ShouldCreate: false}
		}
	}

	plan := Plan{Name: name, Source: strategy.DefaultBranch, ShouldCreate: !contains(knownBranches, name)}
	if target.Minor == 0 || !strategy.FromPrevious {
		return plan
	}
	if previous, ok := previousReleaseBranch(target, knownBranches, strategy.Template); ok {
		plan.Source = previous
	}
	return plan
}

// previousReleaseBranch finds the existing branch of target's major with the
// highest minor below target's minor.
func previousReleaseBranch(target version.Version, branches []string, template string) (string, bool) {
	re, err := branchMatcher(template, target.Major)
	if err != nil {
		return "", false
	}
	best, bestMinor := "", -1
	for _, b := range branches {
		m := re.FindStringSubmatch(strings.TrimSpace(b))
		if m == nil {
			continue
		}
		minor, err := strconv.Atoi(m[1])
		if err != nil || minor >= target.Minor {
			continue
		}
		if minor > bestMinor {
			best, bestMinor = strings.TrimSpace(b), minor
		}
	}
	return best, bestMinor >= 0
}

// branchMatcher turns a template into a regexp capturing the minor number
// for a fixed major.
func branchMatcher(template string, major int) (*regexp.Regexp, error) {
	if !strings.Contains(template, "{minor}") {
		return nil, fmt.Errorf("branch: template %q has no {minor} placeholder", template)
	}
	quoted := regexp.QuoteMeta(template)
	quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta("{major}"), strconv.Itoa(major))
	quoted = strings.Replace(quoted, regexp.QuoteMeta("{minor}"), `(\d+)`, 1)
	quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta("{minor}"), `\d+`)
	quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta("{patch}"), `\d+`)
	return regexp.Compile(`^` + quoted + `$`)
}

func contains(branches []string, name string) bool {
	for _, b := range branches {
		if strings.TrimSpace(b) == name {
			return true
		}
	}
	return false
}
