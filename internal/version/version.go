// Package version parses and orders release versions of the form
// major.minor.patch[-prerelease].
package version

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidVersion is wrapped by every parse failure.
var ErrInvalidVersion = errors.New("invalid version")

// InvalidVersionError reports the text that failed to parse.
type InvalidVersionError struct {
	Text string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("version: %q is not a valid version", e.Text)
}

func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Type classifies a version by its prerelease prefix.
type Type string

const (
	TypeFinal            Type = "final"
	TypeReleaseCandidate Type = "release_candidate"
	TypeBeta             Type = "beta"
	TypeAlpha            Type = "alpha"
)

var (
	fullPattern    = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-(.+))?$`)
	partialPattern = regexp.MustCompile(`^(\d+)\.(\d+)$`)
)

// Version is an immutable release version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

// Parse accepts major.minor.patch with an optional -prerelease suffix.
// A leading "v" is ignored.
func Parse(text string) (Version, error) {
	return parse(text, false)
}

// ParsePartial behaves like Parse but also accepts major.minor.
func ParsePartial(text string) (Version, error) {
	return parse(text, true)
}

// MustParse panics when text is not a version. Intended for tests and constants.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

func parse(text string, allowPartial bool) (Version, error) {
	trimmed := stripMarker(strings.TrimSpace(text))
	if m := fullPattern.FindStringSubmatch(trimmed); m != nil {
		major, err1 := strconv.Atoi(m[1])
		minor, err2 := strconv.Atoi(m[2])
		patch, err3 := strconv.Atoi(m[3])
		if err := errors.Join(err1, err2, err3); err != nil {
			return Version{}, &InvalidVersionError{Text: text}
		}
		return Version{Major: major, Minor: minor, Patch: patch, Prerelease: m[4]}, nil
	}
	if allowPartial {
		if m := partialPattern.FindStringSubmatch(trimmed); m != nil {
			major, err1 := strconv.Atoi(m[1])
			minor, err2 := strconv.Atoi(m[2])
			if err := errors.Join(err1, err2); err != nil {
				return Version{}, &InvalidVersionError{Text: text}
			}
			return Version{Major: major, Minor: minor}, nil
		}
	}
	return Version{}, &InvalidVersionError{Text: text}
}

func stripMarker(text string) string {
	if strings.HasPrefix(text, "v") || strings.HasPrefix(text, "V") {
		return text[1:]
	}
	return text
}

// Format renders the version, optionally with the "v" marker.
func (v Version) Format(includeMarker bool) string {
	var b strings.Builder
	if includeMarker {
		b.WriteByte('v')
	}
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		b.WriteByte('-')
		b.WriteString(v.Prerelease)
	}
	return b.String()
}

func (v Version) String() string { return v.Format(false) }

// Tag renders the version with the "v" marker.
func (v Version) Tag() string { return v.Format(true) }

// MarshalText renders the version without marker so JSON and YAML carry
// plain strings.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a full version.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// IsFinal reports whether the version carries no prerelease.
func (v Version) IsFinal() bool { return v.Prerelease == "" }

// Type derives the version type from the prerelease prefix.
func (v Version) Type() Type {
	if v.IsFinal() {
		return TypeFinal
	}
	pre := strings.ToLower(v.Prerelease)
	switch {
	case strings.HasPrefix(pre, "rc"):
		return TypeReleaseCandidate
	case strings.HasPrefix(pre, "beta"):
		return TypeBeta
	case strings.HasPrefix(pre, "alpha"):
		return TypeAlpha
	}
	return TypeFinal
}

// IsReleaseCandidate is shorthand for Type() == TypeReleaseCandidate.
func (v Version) IsReleaseCandidate() bool { return v.Type() == TypeReleaseCandidate }

// SameCore reports whether both versions share major.minor.patch.
func (v Version) SameCore(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor && v.Patch == other.Patch
}

// SameLine reports whether both versions share major.minor.
func (v Version) SameLine(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

func (v Version) BumpMajor() Version { return Version{Major: v.Major + 1} }

func (v Version) BumpMinor() Version { return Version{Major: v.Major, Minor: v.Minor + 1} }

func (v Version) BumpPatch() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// BumpRC keeps major.minor.patch and sets the prerelease to rc.<n>.
func (v Version) BumpRC(n int) Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Prerelease: "rc." + strconv.Itoa(n)}
}

func (v Version) Less(other Version) bool { return Compare(v, other) < 0 }

func (v Version) Equal(other Version) bool { return Compare(v, other) == 0 }

// Compare returns -1, 0 or 1. A final version sorts after every prerelease
// of the same major.minor.patch.
func Compare(a, b Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	switch {
	case a.IsFinal() && b.IsFinal():
		return 0
	case a.IsFinal():
		return 1
	case b.IsFinal():
		return -1
	}
	return comparePrerelease(a.Prerelease, b.Prerelease)
}

var alnumComponent = regexp.MustCompile(`^([A-Za-z]*)(\d+)$`)

func comparePrerelease(a, b string) int {
	left := strings.Split(a, ".")
	right := strings.Split(b, ".")
	n := len(left)
	if len(right) > n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		var l, r string
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		if c := compareComponent(l, r); c != 0 {
			return c
		}
	}
	return 0
}

func compareComponent(l, r string) int {
	if l == r {
		return 0
	}
	lm := alnumComponent.FindStringSubmatch(l)
	rm := alnumComponent.FindStringSubmatch(r)
	if lm != nil && rm != nil {
		if c := strings.Compare(lm[1], rm[1]); c != 0 {
			return c
		}
		if c := compareDigits(lm[2], rm[2]); c != 0 {
			return c
		}
	}
	return strings.Compare(l, r)
}

// compareDigits orders decimal strings numerically without overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := compareInt(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Sort orders versions ascending in place.
func Sort(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool { return Compare(versions[i], versions[j]) < 0 })
}

// SortDescending orders versions newest first in place.
func SortDescending(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool { return Compare(versions[i], versions[j]) > 0 })
}

// ParseTags parses git tag names, dropping the prefix and skipping anything
// that is not a version. The result is ascending and free of duplicates.
func ParseTags(tags []string, prefix string) []Version {
	out := make([]Version, 0, len(tags))
	for _, tag := range tags {
		name := strings.TrimSpace(tag)
		if prefix != "" {
			name = strings.TrimPrefix(name, prefix)
		}
		v, err := Parse(name)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	Sort(out)
	deduped := out[:0]
	for i, v := range out {
		if i > 0 && Compare(v, deduped[len(deduped)-1]) == 0 {
			continue
		}
		deduped = append(deduped, v)
	}
	return deduped
}
