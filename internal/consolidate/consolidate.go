// Package consolidate groups commits and pull requests into logical changes
// keyed by the ticket they belong to.
package consolidate

import (
	"fmt"
	"strconv"

	"github.com/kingrea/releasekit/internal/model"
	"github.com/kingrea/releasekit/internal/ticket"
)

// Kind identifies what a change was grouped by.
type Kind string

const (
	KindTicket      Kind = "ticket"
	KindPullRequest Kind = "pull_request"
	KindCommit      Kind = "commit"
)

// ParseKind accepts the kind names plus the plural forms used in config
// ("tickets", "pull-requests", "commits").
func ParseKind(value string) (Kind, error) {
	switch value {
	case "ticket", "tickets", "issues":
		return KindTicket, nil
	case "pull_request", "pull-request", "pull-requests", "pull_requests", "prs":
		return KindPullRequest, nil
	case "commit", "commits":
		return KindCommit, nil
	}
	return "", fmt.Errorf("consolidate: unknown change kind %q", value)
}

// Change is one logical unit of release-note generation.
type Change struct {
	Kind         Kind
	Key          string
	Commits      []model.Commit
	PullRequests []model.PullRequest
	Ticket       *model.Ticket
}

// HasTicket reports whether the change was grouped under a ticket.
func (c Change) HasTicket() bool { return c.Kind == KindTicket }

// Source describes where the grouping key came from.
func (c Change) Source() string {
	switch c.Kind {
	case KindTicket:
		return "ticket #" + c.Key
	case KindPullRequest:
		return "pull request #" + c.Key
	}
	if len(c.Commits) > 0 {
		return "commit " + c.Commits[0].ShortID()
	}
	return "commit " + c.Key
}

// Subject returns a one-line summary used in diagnostics.
func (c Change) Subject() string {
	if len(c.PullRequests) > 0 && c.PullRequests[0].Title != "" {
		return c.PullRequests[0].Title
	}
	if len(c.Commits) > 0 {
		return c.Commits[0].Subject()
	}
	return ""
}

func (c *Change) addPullRequest(pr model.PullRequest) {
	for _, existing := range c.PullRequests {
		if existing.Number == pr.Number {
			return
		}
	}
	c.PullRequests = append(c.PullRequests, pr)
}

// Option customizes a Consolidator.
type Option func(*Consolidator)

// WithConsolidation toggles ticket grouping. When disabled every commit
// becomes its own change.
func WithConsolidation(enabled bool) Option {
	return func(c *Consolidator) {
		c.enabled = enabled
	}
}

// Consolidator groups commits by extracted ticket key.
type Consolidator struct {
	extractor *ticket.Extractor
	enabled   bool
}

// New builds a Consolidator around extractor.
func New(extractor *ticket.Extractor, opts ...Option) *Consolidator {
	c := &Consolidator{extractor: extractor, enabled: true}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type bucketKey struct {
	kind Kind
	key  string
}

// Consolidate processes commits in order. Every commit ends up in exactly
// one returned change; changes are returned in first-insertion order.
//
// When a commit and its pull request yield several ticket keys, the first
// key wins: commit-message keys in pattern order, then pull request keys.
func (c *Consolidator) Consolidate(commits []model.Commit, prs map[int]model.PullRequest) []Change {
	var changes []*Change
	index := make(map[bucketKey]*Change)

	for _, commit := range commits {
		pr, hasPR := linkedPR(commit, prs)

		if !c.enabled {
			change := &Change{Kind: KindCommit, Key: commit.ID, Commits: []model.Commit{commit}}
			if hasPR {
				change.addPullRequest(pr)
			}
			changes = append(changes, change)
			continue
		}

		keys := c.keysFor(commit, pr, hasPR)
		var bk bucketKey
		switch {
		case len(keys) > 0:
			bk = bucketKey{kind: KindTicket, key: keys[0]}
		case hasPR:
			bk = bucketKey{kind: KindPullRequest, key: strconv.Itoa(pr.Number)}
		default:
			changes = append(changes, &Change{Kind: KindCommit, Key: commit.ID, Commits: []model.Commit{commit}})
			continue
		}

		change, ok := index[bk]
		if !ok {
			change = &Change{Kind: bk.kind, Key: bk.key}
			index[bk] = change
			changes = append(changes, change)
		}
		change.Commits = append(change.Commits, commit)
		if hasPR {
			change.addPullRequest(pr)
		}
	}

	out := make([]Change, 0, len(changes))
	for _, change := range changes {
		out = append(out, *change)
	}
	return out
}

func (c *Consolidator) keysFor(commit model.Commit, pr model.PullRequest, hasPR bool) []string {
	if c.extractor == nil {
		return nil
	}
	keys := c.extractor.FromCommitMessage(commit.Message)
	if !hasPR {
		return keys
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	for _, k := range c.extractor.FromPullRequest(pr) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// linkedPR resolves the commit's pull request. A number with no known pull
// request leaves the commit unlinked.
func linkedPR(commit model.Commit, prs map[int]model.PullRequest) (model.PullRequest, bool) {
	if commit.PRNumber <= 0 {
		return model.PullRequest{}, false
	}
	pr, ok := prs[commit.PRNumber]
	return pr, ok
}
