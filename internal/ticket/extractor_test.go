package ticket

import (
	"reflect"
	"sort"
	"testing"

	"github.com/kingrea/releasekit/internal/model"
)

func mustExtractor(t *testing.T, patterns []Pattern) *Extractor {
	t.Helper()
	e, err := NewExtractor(patterns)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return e
}

func TestBranchNamePattern(t *testing.T) {
	e := mustExtractor(t, DefaultPatterns())
	got := e.FromBranchName("docs/feat-8853/main")
	if !reflect.DeepEqual(got, []string{"8853"}) {
		t.Fatalf("expected [8853], got %v", got)
	}
}

func TestCommitMessageUnionAcrossPatterns(t *testing.T) {
	e := mustExtractor(t, DefaultPatterns())
	got := e.FromCommitMessage("Fix login (#12) and PROJ-34, see #12 again")
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"12", "34"}) {
		t.Fatalf("expected union [12 34], got %v", got)
	}
}

func TestCommitMessageOrderFollowsPatternOrder(t *testing.T) {
	e := mustExtractor(t, []Pattern{
		{Order: 2, Strategy: StrategyCommitMessage, Pattern: `#(\d+)`},
		{Order: 1, Strategy: StrategyCommitMessage, Pattern: `[A-Z]+-(?P<ticket>\d+)`},
	})
	got := e.FromCommitMessage("#5 relates to ABC-9")
	if !reflect.DeepEqual(got, []string{"9", "5"}) {
		t.Fatalf("expected [9 5], got %v", got)
	}
}

func TestKeyFallbacks(t *testing.T) {
	e := mustExtractor(t, []Pattern{
		{Order: 1, Strategy: StrategyCommitMessage, Pattern: `(?P<project>[A-Z]+)-(?P<ticket>\d+)`},
		{Order: 2, Strategy: StrategyCommitMessage, Pattern: `issue (\d+)`},
		{Order: 3, Strategy: StrategyCommitMessage, Pattern: `T\d+`},
	})
	got := e.FromCommitMessage("API-7 closes issue 8 and T99")
	if !reflect.DeepEqual(got, []string{"7", "8", "T99"}) {
		t.Fatalf("expected named, first group, whole match fallbacks, got %v", got)
	}
}

func TestPullRequestFirstMatchingPatternWins(t *testing.T) {
	e := mustExtractor(t, []Pattern{
		{Order: 1, Strategy: StrategyBranchName, Pattern: `/(?P<repo>\w+)-(?P<ticket>\d+)`},
		{Order: 2, Strategy: StrategyPRBody, Pattern: `Parent issue:.*?/issues/(?P<ticket>\d+)`},
	})
	pr := model.PullRequest{
		Number:     3,
		HeadBranch: "feat/core-100/main",
		Body:       "Parent issue: https://github.com/acme/core/issues/200",
	}
	got := e.FromPullRequest(pr)
	if !reflect.DeepEqual(got, []string{"100"}) {
		t.Fatalf("expected only the branch match, got %v", got)
	}

	pr.HeadBranch = "main"
	got = e.FromPullRequest(pr)
	if !reflect.DeepEqual(got, []string{"200"}) {
		t.Fatalf("expected fallback to body match, got %v", got)
	}
}

func TestCommitAndBranchExtractionStayIndependent(t *testing.T) {
	e := mustExtractor(t, []Pattern{
		{Order: 1, Strategy: StrategyCommitMessage, Pattern: `#(?P<ticket>\d+)`},
		{Order: 2, Strategy: StrategyBranchName, Pattern: `/(?P<repo>\w+)-(?P<ticket>\d+)`},
	})
	if got := e.FromCommitMessage("Refs #1 and #2"); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("commit extraction: %v", got)
	}
	if got := e.FromBranchName("feat/api-3/x-4"); !reflect.DeepEqual(got, []string{"3", "4"}) {
		t.Fatalf("branch extraction: %v", got)
	}
}

func TestPullRequestIgnoresCommitPatterns(t *testing.T) {
	e := mustExtractor(t, []Pattern{
		{Order: 1, Strategy: StrategyCommitMessage, Pattern: `#(\d+)`},
		{Order: 2, Strategy: StrategyPRTitle, Pattern: `\[(\d+)\]`},
	})
	got := e.FromPullRequest(model.PullRequest{Title: "[77] Fix #5", Body: "#6"})
	if !reflect.DeepEqual(got, []string{"77"}) {
		t.Fatalf("expected title match only, got %v", got)
	}
	if got := e.FromPullRequest(model.PullRequest{}); got != nil {
		t.Fatalf("expected no keys for empty PR, got %v", got)
	}
}

func TestNewExtractorValidates(t *testing.T) {
	if _, err := NewExtractor([]Pattern{{Order: 1, Strategy: "subject", Pattern: `x`}}); err == nil {
		t.Fatalf("expected unknown strategy error")
	}
	if _, err := NewExtractor([]Pattern{{Order: 1, Strategy: StrategyPRTitle, Pattern: `(`}}); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := NewExtractor([]Pattern{{Order: 1, Strategy: StrategyPRTitle}}); err == nil {
		t.Fatalf("expected empty pattern error")
	}
}

func TestPRNumbersFromMessage(t *testing.T) {
	cases := map[string][]int{
		"Merge pull request #42 from acme/feature": {42},
		"Add retries (#17)":                         {17},
		"Follow up to PR #5 and pr#6":               {5, 6},
		"No reference here":                         nil,
	}
	for msg, want := range cases {
		if got := PRNumbersFromMessage(msg); !reflect.DeepEqual(got, want) {
			t.Fatalf("%q: expected %v, got %v", msg, want, got)
		}
	}
	if LinkedPRNumber("Squash (#9)") != 9 {
		t.Fatalf("expected linked PR 9")
	}
}
