// Package model holds the materialized forge and git records the release
// engine works on.
package model

import (
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Labels is a set of label names.
type Labels = sets.Set[string]

// NewLabels builds a label set, ignoring blank names.
func NewLabels(names ...string) Labels {
	out := sets.New[string]()
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			out.Insert(trimmed)
		}
	}
	return out
}

// Author identifies a contributor. Commits usually carry name and email,
// pull requests carry the forge username.
type Author struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty" yaml:"profile_url,omitempty"`
}

// Identifier returns the best key for deduplication: username, name, then
// the local part of the email address.
func (a Author) Identifier() string {
	switch {
	case a.Username != "":
		return a.Username
	case a.Name != "":
		return a.Name
	case a.Email != "":
		return emailLocalPart(a.Email)
	}
	return "unknown"
}

// Display returns a human readable name.
func (a Author) Display() string {
	switch {
	case a.DisplayName != "":
		return a.DisplayName
	case a.Name != "":
		return a.Name
	case a.Username != "":
		return a.Username
	case a.Email != "":
		return emailLocalPart(a.Email)
	}
	return "Unknown Author"
}

// Mention returns @username when known, else the display name.
func (a Author) Mention() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	return a.Display()
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Commit is a single git commit.
type Commit struct {
	ID        string    `json:"id" yaml:"id"`
	Message   string    `json:"message" yaml:"message"`
	Author    Author    `json:"author" yaml:"author"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// PRNumber links the commit to a pull request; zero means none.
	PRNumber int `json:"pr_number,omitempty" yaml:"pr_number,omitempty"`
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	first, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(first)
}

// ShortID returns the abbreviated commit hash.
func (c Commit) ShortID() string {
	if len(c.ID) > 7 {
		return c.ID[:7]
	}
	return c.ID
}

// PullRequest is a merged (or open) pull request.
type PullRequest struct {
	Number     int
	Title      string
	Body       string
	HeadBranch string
	Labels     Labels
	MergedAt   *time.Time
	Author     *Author
	URL        string
}

// Ticket is external issue metadata attached after consolidation.
type Ticket struct {
	Key    string
	Title  string
	Body   string
	Labels Labels
	URL    string
}

// SortedLabels returns the label names in a stable order.
func SortedLabels(labels Labels) []string {
	if labels == nil {
		return nil
	}
	return sets.List(labels)
}
