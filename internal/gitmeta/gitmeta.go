// Package gitmeta reads tags, branches and commits through the git binary.
package gitmeta

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/releasekit/internal/model"
	"github.com/kingrea/releasekit/internal/ticket"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
	logFormat = "--format=%H%x1f%an%x1f%ae%x1f%at%x1f%B%x1e"
)

// Collector wraps git operations for one working tree.
type Collector struct {
	RepoPath string
}

// New returns a collector for repoPath.
func New(repoPath string) Collector {
	return Collector{RepoPath: repoPath}
}

func (c Collector) git(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"-C", c.RepoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("gitmeta: git %s: %w", args[0], err)
		}
		return nil, fmt.Errorf("gitmeta: git %s: %w: %s", args[0], err, msg)
	}
	return out, nil
}

// IsRepo reports whether RepoPath is inside a git work tree.
func (c Collector) IsRepo(ctx context.Context) bool {
	out, err := c.git(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// Tags lists every tag name.
func (c Collector) Tags(ctx context.Context) ([]string, error) {
	out, err := c.git(ctx, "tag", "--list")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Branches lists local and remote branch names. Remote names lose their
// remote prefix so they compare equal to the release branch template. Use
// ResolveRef before handing a name back to git.
func (c Collector) Branches(ctx context.Context) ([]string, error) {
	refs, err := c.branchRefs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var branches []string
	for _, ref := range refs {
		name, _, ok := branchName(ref)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		branches = append(branches, name)
	}
	return branches, nil
}

// ResolveRef maps a branch name to a ref git can read: the local branch,
// else a remote-tracking branch of the same name with origin preferred.
// It reports false when neither exists.
func (c Collector) ResolveRef(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, nil
	}
	refs, err := c.branchRefs(ctx)
	if err != nil {
		return "", false, err
	}
	var remote string
	for _, ref := range refs {
		branch, remoteName, ok := branchName(ref)
		if !ok || branch != name {
			continue
		}
		if remoteName == "" {
			return ref, true, nil
		}
		if remote == "" || remoteName == "origin" {
			remote = ref
		}
	}
	return remote, remote != "", nil
}

func (c Collector) branchRefs(ctx context.Context) ([]string, error) {
	out, err := c.git(ctx, "for-each-ref", "--format=%(refname)", "refs/heads", "refs/remotes")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// branchName splits a full ref into the branch name and, for
// remote-tracking refs, the remote.
func branchName(ref string) (name, remote string, ok bool) {
	if local, isLocal := strings.CutPrefix(ref, "refs/heads/"); isLocal {
		return local, "", local != ""
	}
	rest, ok := strings.CutPrefix(ref, "refs/remotes/")
	if !ok {
		return "", "", false
	}
	remote, name, ok = strings.Cut(rest, "/")
	if !ok || name == "" || name == "HEAD" {
		return "", "", false
	}
	return name, remote, true
}

// Commits returns the commits reachable from to but not from, oldest first.
// An empty from reads the whole history of to.
func (c Collector) Commits(ctx context.Context, from, to string) ([]model.Commit, error) {
	if strings.TrimSpace(to) == "" {
		to = "HEAD"
	}
	rangeSpec := to
	if strings.TrimSpace(from) != "" {
		rangeSpec = from + ".." + to
	}
	out, err := c.git(ctx, "log", "--reverse", logFormat, rangeSpec)
	if err != nil {
		return nil, err
	}
	return parseLog(string(out))
}

// parseLog decodes records produced by logFormat.
func parseLog(out string) ([]model.Commit, error) {
	var commits []model.Commit
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		parts := strings.SplitN(record, fieldSep, 5)
		if len(parts) != 5 {
			return nil, fmt.Errorf("gitmeta: malformed log record %q", record)
		}
		secs, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("gitmeta: commit %s timestamp: %w", parts[0], err)
		}
		message := strings.TrimSpace(parts[4])
		commits = append(commits, model.Commit{
			ID:        strings.TrimSpace(parts[0]),
			Message:   message,
			Author:    model.Author{Name: strings.TrimSpace(parts[1]), Email: strings.TrimSpace(parts[2])},
			Timestamp: time.Unix(secs, 0).UTC(),
			PRNumber:  ticket.LinkedPRNumber(message),
		})
	}
	return commits, nil
}

func lines(out []byte) []string {
	var res []string
	for _, line := range strings.Split(string(out), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
