package model

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PullRequestRecord is the serialized form of a PullRequest.
type PullRequestRecord struct {
	Number     int        `json:"number" yaml:"number"`
	Title      string     `json:"title" yaml:"title"`
	Body       string     `json:"body,omitempty" yaml:"body,omitempty"`
	HeadBranch string     `json:"head_branch,omitempty" yaml:"head_branch,omitempty"`
	Labels     []string   `json:"labels,omitempty" yaml:"labels,omitempty"`
	MergedAt   *time.Time `json:"merged_at,omitempty" yaml:"merged_at,omitempty"`
	Author     *Author    `json:"author,omitempty" yaml:"author,omitempty"`
	URL        string     `json:"url,omitempty" yaml:"url,omitempty"`
}

// TicketRecord is the serialized form of a Ticket.
type TicketRecord struct {
	Key    string   `json:"key" yaml:"key"`
	Title  string   `json:"title" yaml:"title"`
	Body   string   `json:"body,omitempty" yaml:"body,omitempty"`
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	URL    string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// ReleaseRecord is a previously published release.
type ReleaseRecord struct {
	Version string `json:"version" yaml:"version"`
	Body    string `json:"body" yaml:"body"`
}

// Snapshot is the materialized forge and git state for one run.
type Snapshot struct {
	Repository   string              `json:"repository,omitempty" yaml:"repository,omitempty"`
	Commits      []Commit            `json:"commits,omitempty" yaml:"commits,omitempty"`
	PullRequests []PullRequestRecord `json:"pull_requests,omitempty" yaml:"pull_requests,omitempty"`
	Tickets      []TicketRecord      `json:"tickets,omitempty" yaml:"tickets,omitempty"`
	Branches     []string            `json:"branches,omitempty" yaml:"branches,omitempty"`
	Tags         []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	Releases     []ReleaseRecord     `json:"releases,omitempty" yaml:"releases,omitempty"`
}

// LoadSnapshot reads a YAML or JSON snapshot file.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: parse %s: %w", path, err)
	}
	return snap, nil
}

// DecodeSnapshot parses YAML, which includes JSON documents.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if len(strings.TrimSpace(string(data))) == 0 {
		return snap, nil
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// PullRequest converts the record into a PullRequest.
func (r PullRequestRecord) PullRequest() PullRequest {
	return PullRequest{
		Number:     r.Number,
		Title:      r.Title,
		Body:       r.Body,
		HeadBranch: r.HeadBranch,
		Labels:     NewLabels(r.Labels...),
		MergedAt:   r.MergedAt,
		Author:     r.Author,
		URL:        r.URL,
	}
}

// Ticket converts the record into a Ticket.
func (r TicketRecord) Ticket() Ticket {
	return Ticket{
		Key:    r.Key,
		Title:  r.Title,
		Body:   r.Body,
		Labels: NewLabels(r.Labels...),
		URL:    r.URL,
	}
}

// PullRequestIndex maps pull requests by number.
func (s Snapshot) PullRequestIndex() map[int]PullRequest {
	out := make(map[int]PullRequest, len(s.PullRequests))
	for _, rec := range s.PullRequests {
		out[rec.Number] = rec.PullRequest()
	}
	return out
}

// TicketIndex maps tickets by key.
func (s Snapshot) TicketIndex() map[string]Ticket {
	out := make(map[string]Ticket, len(s.Tickets))
	for _, rec := range s.Tickets {
		out[rec.Key] = rec.Ticket()
	}
	return out
}
