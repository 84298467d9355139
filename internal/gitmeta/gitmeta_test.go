package gitmeta

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLog(t *testing.T) {
	out := "abc123\x1fJane Doe\x1fjane@example.com\x1f1700000000\x1fAdd search (#12)\n\nBody line\n\x1e\n" +
		"def456\x1fBob\x1fbob@example.com\x1f1700000100\x1fFix crash\n\x1e\n"
	commits, err := parseLog(out)
	if err != nil {
		t.Fatalf("parseLog: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}
	c := commits[0]
	if c.ID != "abc123" || c.Author.Name != "Jane Doe" || c.Author.Email != "jane@example.com" {
		t.Fatalf("unexpected commit %+v", c)
	}
	if c.Message != "Add search (#12)\n\nBody line" || c.PRNumber != 12 {
		t.Fatalf("unexpected message or PR link %+v", c)
	}
	if c.Timestamp.Unix() != 1700000000 {
		t.Fatalf("unexpected timestamp %v", c.Timestamp)
	}
	if commits[1].PRNumber != 0 {
		t.Fatalf("expected no PR link, got %d", commits[1].PRNumber)
	}
}

func TestParseLogMalformed(t *testing.T) {
	if _, err := parseLog("abc\x1fonly two\x1e"); err == nil {
		t.Fatalf("expected malformed record error")
	}
}

func TestBranchName(t *testing.T) {
	cases := map[string][2]string{
		"refs/heads/main":                   {"main", ""},
		"refs/heads/release/1.2":            {"release/1.2", ""},
		"refs/remotes/origin/release/1.1":   {"release/1.1", "origin"},
		"refs/remotes/upstream/release/1.0": {"release/1.0", "upstream"},
	}
	for ref, want := range cases {
		name, remote, ok := branchName(ref)
		if !ok || name != want[0] || remote != want[1] {
			t.Fatalf("%s: expected %v, got %q %q (%v)", ref, want, name, remote, ok)
		}
	}
	if _, _, ok := branchName("refs/remotes/origin/HEAD"); ok {
		t.Fatalf("expected origin/HEAD to be skipped")
	}
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(cmd.Environ(),
		"GIT_AUTHOR_NAME=Jane", "GIT_AUTHOR_EMAIL=jane@example.com",
		"GIT_COMMITTER_NAME=Jane", "GIT_COMMITTER_EMAIL=jane@example.com",
		"GIT_CONFIG_NOSYSTEM=1", "HOME="+dir,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
}

func TestCollectorAgainstRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not found")
	}
	dir := t.TempDir()
	run(t, dir, "init", "-q", "-b", "main")
	run(t, dir, "commit", "-q", "--allow-empty", "-m", "Initial commit")
	run(t, dir, "tag", "v1.0.0")
	run(t, dir, "branch", "release/1.0")
	run(t, dir, "commit", "-q", "--allow-empty", "-m", "Add search (#7)")
	run(t, dir, "commit", "-q", "--allow-empty", "-m", "Fix crash #43")

	ctx := context.Background()
	c := New(dir)
	if !c.IsRepo(ctx) {
		t.Fatalf("expected a git repository")
	}
	tags, err := c.Tags(ctx)
	if err != nil || len(tags) != 1 || tags[0] != "v1.0.0" {
		t.Fatalf("unexpected tags %v (%v)", tags, err)
	}
	branches, err := c.Branches(ctx)
	if err != nil {
		t.Fatalf("branches: %v", err)
	}
	if strings.Join(branches, ",") != "main,release/1.0" {
		t.Fatalf("unexpected branches %v", branches)
	}
	commits, err := c.Commits(ctx, "v1.0.0", "HEAD")
	if err != nil {
		t.Fatalf("commits: %v", err)
	}
	if len(commits) != 2 || commits[0].Subject() != "Add search (#7)" || commits[0].PRNumber != 7 {
		t.Fatalf("unexpected commits %+v", commits)
	}
	if commits[1].Author.Email != "jane@example.com" {
		t.Fatalf("unexpected author %+v", commits[1].Author)
	}

	if New(t.TempDir()).IsRepo(ctx) {
		t.Fatalf("empty dir should not be a repository")
	}
}

func TestResolveRefInClone(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not found")
	}
	root := t.TempDir()
	upstream := filepath.Join(root, "upstream")
	clone := filepath.Join(root, "clone")
	if err := os.MkdirAll(upstream, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	run(t, upstream, "init", "-q", "-b", "main")
	run(t, upstream, "commit", "-q", "--allow-empty", "-m", "Initial commit")
	run(t, upstream, "tag", "v1.1.0")
	run(t, upstream, "checkout", "-q", "-b", "release/1.1")
	run(t, upstream, "commit", "-q", "--allow-empty", "-m", "Backport fix #43")
	run(t, upstream, "checkout", "-q", "main")
	run(t, root, "clone", "-q", upstream, clone)

	ctx := context.Background()
	c := New(clone)
	branches, err := c.Branches(ctx)
	if err != nil {
		t.Fatalf("branches: %v", err)
	}
	if strings.Join(branches, ",") != "main,release/1.1" {
		t.Fatalf("unexpected branches %v", branches)
	}

	ref, ok, err := c.ResolveRef(ctx, "release/1.1")
	if err != nil || !ok || ref != "refs/remotes/origin/release/1.1" {
		t.Fatalf("expected remote-tracking ref, got %q %v %v", ref, ok, err)
	}
	commits, err := c.Commits(ctx, "v1.1.0", ref)
	if err != nil {
		t.Fatalf("commits: %v", err)
	}
	if len(commits) != 1 || commits[0].Subject() != "Backport fix #43" {
		t.Fatalf("unexpected commits %+v", commits)
	}

	if ref, ok, err := c.ResolveRef(ctx, "main"); err != nil || !ok || ref != "refs/heads/main" {
		t.Fatalf("expected local branch first, got %q %v %v", ref, ok, err)
	}
	if _, ok, err := c.ResolveRef(ctx, "release/9.9"); err != nil || ok {
		t.Fatalf("expected unknown branch to be unresolved, got %v %v", ok, err)
	}
}
