package branch

import (
	"fmt"
	"strings"

	"github.com/kingrea/releasekit/internal/policy"
	"github.com/kingrea/releasekit/internal/version"
)

// DocsPolicy selects comparison points for documentation output.
type DocsPolicy string

const (
	DocsFinalOnly  DocsPolicy = "final-only"
	DocsIncludeRCs DocsPolicy = "include-rcs"
)

// ParseDocsPolicy accepts final-only or include-rcs; empty means final-only.
func ParseDocsPolicy(value string) (DocsPolicy, error) {
	switch DocsPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", DocsFinalOnly:
		return DocsFinalOnly, nil
	case DocsIncludeRCs:
		return DocsIncludeRCs, nil
	}
	return "", fmt.Errorf("branch: unknown docs comparison policy %q", value)
}

// earlier returns the known versions strictly below target, newest first.
func earlier(target version.Version, known []version.Version) []version.Version {
	out := make([]version.Version, 0, len(known))
	for _, v := range known {
		if v.Less(target) {
			out = append(out, v)
		}
	}
	version.SortDescending(out)
	return out
}

// FindComparison picks the version target is compared against. Release
// candidates prefer the previous candidate of the same major.minor.patch;
// otherwise the latest earlier final version wins, falling back to the
// latest earlier version of any kind.
func FindComparison(target version.Version, known []version.Version) (version.Version, bool) {
	candidates := earlier(target, known)
	if len(candidates) == 0 {
		return version.Version{}, false
	}
	if target.IsReleaseCandidate() {
		for _, v := range candidates {
			if v.IsReleaseCandidate() && v.SameCore(target) {
				return v, true
			}
		}
	}
	if v, ok := latestFinal(candidates); ok {
		return v, true
	}
	return candidates[0], true
}

// FindComparisonForDocs applies the docs policy: final-only ignores release
// candidates as comparison points, include-rcs behaves like FindComparison.
func FindComparisonForDocs(target version.Version, known []version.Version, p DocsPolicy) (version.Version, bool) {
	if p == DocsIncludeRCs {
		return FindComparison(target, known)
	}
	return latestFinal(earlier(target, known))
}

func latestFinal(descending []version.Version) (version.Version, bool) {
	for _, v := range descending {
		if v.IsFinal() {
			return v, true
		}
	}
	return version.Version{}, false
}

// CodeVersionGap identifies gap diagnostics.
const CodeVersionGap = "version_gap"

// CheckGap reports skipped versions between from and to: a major jump of
// more than one, or a minor or patch jump of more than one within the same
// line.
func CheckGap(from, to version.Version, action policy.Action) (*policy.Diagnostic, error) {
	gap := false
	switch {
	case to.Major > from.Major+1:
		gap = true
	case to.Major == from.Major && to.Minor > from.Minor+1:
		gap = true
	case to.Major == from.Major && to.Minor == from.Minor && to.Patch > from.Patch+1:
		gap = true
	}
	if !gap {
		return nil, nil
	}
	msg := fmt.Sprintf("version gap detected between %s and %s", from, to)
	return policy.Apply(action, CodeVersionGap, msg, 1, []string{from.String() + " -> " + to.String()})
}
