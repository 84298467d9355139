package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Semver converts v into a Masterminds semver value. Prereleases that are not
// valid SemVer 2.0 identifiers cannot be represented and return an error.
func (v Version) Semver() (*semver.Version, error) {
	sv, err := semver.StrictNewVersion(v.String())
	if err != nil {
		return nil, fmt.Errorf("version: %s: %w", v, err)
	}
	return sv, nil
}

// Filter keeps the versions satisfying a constraint expression such as
// ">=1.0.0-0 <3.0.0-0". An empty expression keeps everything.
func Filter(versions []Version, expr string) ([]Version, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		out := make([]Version, len(versions))
		copy(out, versions)
		return out, nil
	}
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("version: constraint %q: %w", expr, err)
	}
	out := make([]Version, 0, len(versions))
	for _, v := range versions {
		sv, err := v.Semver()
		if err != nil {
			continue
		}
		if c.Check(sv) {
			out = append(out, v)
		}
	}
	return out, nil
}

// ValidateConstraint reports whether expr parses as a constraint.
func ValidateConstraint(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, err := semver.NewConstraint(expr); err != nil {
		return fmt.Errorf("version: constraint %q: %w", expr, err)
	}
	return nil
}
