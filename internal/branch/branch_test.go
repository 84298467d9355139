package branch

import (
	"errors"
	"testing"

	"github.com/kingrea/releasekit/internal/policy"
	"github.com/kingrea/releasekit/internal/version"
)

func versions(t *testing.T, inputs ...string) []version.Version {
	t.Helper()
	out := make([]version.Version, 0, len(inputs))
	for _, in := range inputs {
		v, err := version.Parse(in)
		if err != nil {
			t.Fatalf("parse %s: %v", in, err)
		}
		out = append(out, v)
	}
	return out
}

func TestNewMajorBranchesFromDefault(t *testing.T) {
	plan := DetermineReleaseBranch(version.MustParse("2.0.0"), []string{"main", "release/1.4"}, versions(t, "1.4.0"), DefaultStrategy())
	if plan.Name != "release/2.0" || plan.Source != "main" || !plan.ShouldCreate {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.HeadRef() != "main" {
		t.Fatalf("expected head ref main, got %s", plan.HeadRef())
	}
}

func TestExistingLineReusesBranch(t *testing.T) {
	plan := DetermineReleaseBranch(version.MustParse("1.4.1"), []string{"main", "release/1.4"}, versions(t, "1.4.0"), DefaultStrategy())
	if plan.Name != "release/1.4" || plan.Source != "release/1.4" || plan.ShouldCreate {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.HeadRef() != "release/1.4" {
		t.Fatalf("expected head ref to be the release branch, got %s", plan.HeadRef())
	}
}

func TestNewMinorBranchesFromPrevious(t *testing.T) {
	branches := []string{"main", "release/1.2", "release/1.3", "release/1.9", "release/2.1", "feature/x"}
	plan := DetermineReleaseBranch(version.MustParse("1.5.0"), branches, versions(t, "1.2.0", "1.3.0"), DefaultStrategy())
	if plan.Source != "release/1.3" || !plan.ShouldCreate {
		t.Fatalf("expected branch from release/1.3, got %+v", plan)
	}

	strategy := DefaultStrategy()
	strategy.FromPrevious = false
	plan = DetermineReleaseBranch(version.MustParse("1.5.0"), branches, nil, strategy)
	if plan.Source != "main" {
		t.Fatalf("expected default branch when from-previous is off, got %+v", plan)
	}
}

func TestNewMinorWithoutPreviousBranchUsesDefault(t *testing.T) {
	strategy := Strategy{Template: "rel-{major}.{minor}.x", DefaultBranch: "trunk", FromPrevious: true}
	plan := DetermineReleaseBranch(version.MustParse("3.1.0-rc.1"), []string{"trunk", "rel-3.1.x"}, versions(t, "3.0.2"), strategy)
	if plan.Name != "rel-3.1.x" || plan.Source != "trunk" {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.ShouldCreate {
		t.Fatalf("branch already exists, expected should_create=false")
	}
}

func TestNewMinorIgnoresHigherMinorBranches(t *testing.T) {
	branches := []string{"main", "release/1.1", "release/1.3", "release/2.0"}
	plan := DetermineReleaseBranch(version.MustParse("1.2.0"), branches, versions(t, "1.1.0", "1.3.0"), DefaultStrategy())
	if plan.Name != "release/1.2" || plan.Source != "release/1.1" || !plan.ShouldCreate {
		t.Fatalf("expected release/1.2 from release/1.1, got %+v", plan)
	}

	plan = DetermineReleaseBranch(version.MustParse("1.2.0"), []string{"main", "release/1.3", "release/1.4"}, versions(t, "1.3.0"), DefaultStrategy())
	if plan.Source != "main" {
		t.Fatalf("expected default branch when only later minors exist, got %+v", plan)
	}
}

func TestRenderBranchName(t *testing.T) {
	got := RenderBranchName("release/{major}.{minor}.{patch}", version.MustParse("4.2.7"))
	if got != "release/4.2.7" {
		t.Fatalf("unexpected name %s", got)
	}
}

func TestFindComparisonPrefersSameCoreRC(t *testing.T) {
	got, ok := FindComparison(version.MustParse("1.2.0-rc.1"), versions(t, "1.0.0", "1.1.0", "1.2.0-rc.0"))
	if !ok || got.String() != "1.2.0-rc.0" {
		t.Fatalf("expected 1.2.0-rc.0, got %v (%v)", got, ok)
	}
}

func TestFindComparisonFinalTarget(t *testing.T) {
	known := versions(t, "1.0.0", "1.1.0", "1.2.0-rc.0", "1.2.0-rc.1", "1.3.0")
	got, ok := FindComparison(version.MustParse("1.2.0"), known)
	if !ok || got.String() != "1.1.0" {
		t.Fatalf("expected 1.1.0, got %v (%v)", got, ok)
	}
}

func TestFindComparisonRCWithoutEarlierRC(t *testing.T) {
	got, ok := FindComparison(version.MustParse("2.0.0-rc.0"), versions(t, "1.9.0", "1.9.1-rc.2"))
	if !ok || got.String() != "1.9.0" {
		t.Fatalf("expected 1.9.0, got %v (%v)", got, ok)
	}
}

func TestFindComparisonFallsBackToAnyEarlier(t *testing.T) {
	got, ok := FindComparison(version.MustParse("1.0.0"), versions(t, "1.0.0-beta.1", "1.0.0-rc.2", "2.0.0"))
	if !ok || got.String() != "1.0.0-rc.2" {
		t.Fatalf("expected 1.0.0-rc.2, got %v (%v)", got, ok)
	}
	if _, ok := FindComparison(version.MustParse("0.1.0"), versions(t, "0.1.0", "1.0.0")); ok {
		t.Fatalf("expected no comparison version")
	}
}

func TestFindComparisonForDocs(t *testing.T) {
	known := versions(t, "1.0.0", "1.1.0", "1.2.0-rc.0")
	target := version.MustParse("1.2.0-rc.1")

	got, ok := FindComparisonForDocs(target, known, DocsFinalOnly)
	if !ok || got.String() != "1.1.0" {
		t.Fatalf("final-only: expected 1.1.0, got %v (%v)", got, ok)
	}
	got, ok = FindComparisonForDocs(target, known, DocsIncludeRCs)
	if !ok || got.String() != "1.2.0-rc.0" {
		t.Fatalf("include-rcs: expected 1.2.0-rc.0, got %v (%v)", got, ok)
	}
	if _, ok := FindComparisonForDocs(version.MustParse("1.0.0"), versions(t, "1.0.0-rc.1"), DocsFinalOnly); ok {
		t.Fatalf("final-only: expected no comparison without earlier finals")
	}
}

func TestParseDocsPolicy(t *testing.T) {
	if p, err := ParseDocsPolicy(""); err != nil || p != DocsFinalOnly {
		t.Fatalf("expected final-only default, got %s %v", p, err)
	}
	if p, err := ParseDocsPolicy("Include-RCs"); err != nil || p != DocsIncludeRCs {
		t.Fatalf("expected include-rcs, got %s %v", p, err)
	}
	if _, err := ParseDocsPolicy("everything"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCheckGap(t *testing.T) {
	cases := []struct {
		from, to string
		gap      bool
	}{
		{"1.0.0", "1.0.1", false},
		{"1.0.0", "1.1.0", false},
		{"1.9.3", "2.0.0", false},
		{"1.0.0", "3.0.0", true},
		{"1.0.0", "1.2.0", true},
		{"1.2.0", "1.2.5", true},
	}
	for _, tc := range cases {
		d, err := CheckGap(version.MustParse(tc.from), version.MustParse(tc.to), policy.Warn)
		if err != nil {
			t.Fatalf("%s -> %s: %v", tc.from, tc.to, err)
		}
		if (d != nil) != tc.gap {
			t.Fatalf("%s -> %s: expected gap=%v, got %+v", tc.from, tc.to, tc.gap, d)
		}
	}
	if _, err := CheckGap(version.MustParse("1.0.0"), version.MustParse("3.0.0"), policy.Error); !errors.Is(err, policy.ErrViolation) {
		t.Fatalf("expected violation, got %v", err)
	}
}
