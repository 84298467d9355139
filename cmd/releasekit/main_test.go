package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/releasekit/internal/version"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("releasekit %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestNextVersion(t *testing.T) {
	known := []version.Version{
		version.MustParse("1.2.0-rc.1"),
		version.MustParse("1.2.0-rc.3"),
		version.MustParse("1.1.0"),
	}
	cases := []struct {
		from string
		bump string
		rc   int
		want string
	}{
		{from: "1.2.3", bump: "major", want: "2.0.0"},
		{from: "1.2.3", bump: "minor", want: "1.3.0"},
		{from: "1.2.3", bump: "", want: "1.2.4"},
		{from: "1.2.0-rc.3", bump: "patch", want: "1.2.1"},
		{from: "1.2.0", bump: "rc", rc: 5, want: "1.2.0-rc.5"},
		{from: "1.2.0", bump: "RC", want: "1.2.0-rc.4"},
		{from: "1.3.0", bump: "rc", want: "1.3.0-rc.1"},
	}
	for _, tc := range cases {
		got, err := nextVersion(version.MustParse(tc.from), tc.bump, tc.rc, known)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.from, tc.bump, err)
		}
		if got.String() != tc.want {
			t.Fatalf("%s %s: expected %s, got %s", tc.from, tc.bump, tc.want, got)
		}
	}
	if _, err := nextVersion(version.MustParse("1.0.0"), "huge", 0, nil); err == nil {
		t.Fatalf("expected error for unknown bump")
	}
	if _, err := nextVersion(version.MustParse("1.0.0"), "rc", -1, nil); err == nil {
		t.Fatalf("expected error for negative rc")
	}
}

func TestTagFor(t *testing.T) {
	tags := []string{"v1.0.0", "1.1.0", "v1.2.0-rc.1"}
	if got := tagFor(tags, "v", version.MustParse("1.1.0")); got != "1.1.0" {
		t.Fatalf("expected the tag as written, got %s", got)
	}
	if got := tagFor(tags, "v", version.MustParse("1.2.0-rc.1")); got != "v1.2.0-rc.1" {
		t.Fatalf("unexpected tag %s", got)
	}
	if got := tagFor(tags, "release-", version.MustParse("2.0.0")); got != "release-2.0.0" {
		t.Fatalf("expected prefixed fallback, got %s", got)
	}
}

func TestDecodeReleases(t *testing.T) {
	yamlDoc := `
- repository: acme/app
  version: 1.1.0
  body: "- Search acme/app#42"
  published_at: 2024-06-01T00:00:00Z
- version: v1.0.0
  draft: true
`
	releases, err := decodeReleases([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(releases) != 2 || releases[0].Repository != "acme/app" || releases[1].Version != "v1.0.0" {
		t.Fatalf("unexpected releases %+v", releases)
	}
	if releases[0].PublishedAt == nil || releases[0].PublishedAt.Year() != 2024 {
		t.Fatalf("expected published_at, got %+v", releases[0].PublishedAt)
	}
	if !releases[1].Draft {
		t.Fatalf("expected draft flag")
	}

	jsonDoc := `[{"repository":"acme/app","version":"2.0.0","body":"x"}]`
	releases, err = decodeReleases([]byte(jsonDoc))
	if err != nil || len(releases) != 1 || releases[0].Version != "2.0.0" {
		t.Fatalf("decode json: %v %+v", err, releases)
	}

	if _, err := decodeReleases([]byte(`{"version": "1.0.0"}`)); err == nil {
		t.Fatalf("expected error for a mapping")
	}
}

const snapshotYAML = `repository: acme/app
tags: [v1.0.0, v1.1.0]
branches: [main, release/1.1]
commits:
  - id: c1
    message: Add search
    author: {name: Jane}
    pr_number: 10
  - id: c2
    message: Tidy up
    author: {name: Bob}
pull_requests:
  - number: 10
    title: "Search everything #42"
    labels: [feature]
tickets:
  - key: "42"
    title: Search everywhere
    labels: [feature]
    url: https://github.com/acme/app/issues/42
`

func TestInitAndNotesFromSnapshot(t *testing.T) {
	dir := t.TempDir()

	out := execute(t, "init", "--dir", dir)
	if !strings.Contains(out, "Initialized") {
		t.Fatalf("unexpected init output %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".releasekit", "config.yaml")); err != nil {
		t.Fatalf("expected config: %v", err)
	}

	snapshot := filepath.Join(dir, "snapshot.yaml")
	if err := os.WriteFile(snapshot, []byte(snapshotYAML), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	out = execute(t, "notes", "--dir", dir, "--target", "1.2.0", "--snapshot", snapshot, "--write")
	if !strings.Contains(out, "Search everywhere") {
		t.Fatalf("expected ticket entry in notes:\n%s", out)
	}
	if !strings.Contains(out, "Tidy up") {
		t.Fatalf("expected commit entry in notes:\n%s", out)
	}

	written, err := os.ReadFile(filepath.Join(dir, ".releasekit", "drafts", "1.2.0.md"))
	if err != nil {
		t.Fatalf("expected draft: %v", err)
	}
	if !strings.HasPrefix(string(written), "---\n") || !strings.Contains(string(written), "Search everywhere") {
		t.Fatalf("unexpected draft:\n%s", written)
	}
	if _, err := os.Stat(filepath.Join(dir, ".releasekit", "logs", "releasekit.log")); err != nil {
		t.Fatalf("expected log file in initialized project: %v", err)
	}
}
