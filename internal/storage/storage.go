// Package storage keeps the history of published releases. The history feeds
// the inter-release duplicate check and the HTTP API.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kingrea/releasekit/internal/model"
	"github.com/kingrea/releasekit/internal/version"
)

// ErrNotFound is returned when a release does not exist.
var ErrNotFound = errors.New("storage: release not found")

// ErrInvalidRelease wraps validation failures other than bad versions.
var ErrInvalidRelease = errors.New("storage: invalid release")

// Release is one stored release.
type Release struct {
	Repository  string     `json:"repository"`
	Version     string     `json:"version"`
	Tag         string     `json:"tag"`
	Body        string     `json:"body"`
	Draft       bool       `json:"draft"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Repository persists releases per code repository.
type Repository interface {
	Save(ctx context.Context, rel Release) error
	// List returns the releases of repo, newest version first.
	List(ctx context.Context, repo string) ([]Release, error)
	Get(ctx context.Context, repo, version string) (Release, error)
	// Import saves releases all or nothing.
	Import(ctx context.Context, releases []Release) error
}

// Normalize validates rel and canonicalizes its version. An empty tag
// defaults to the version with a "v" marker.
func Normalize(rel Release) (Release, error) {
	rel.Repository = strings.Trim(strings.TrimSpace(rel.Repository), "/")
	if rel.Repository == "" {
		return Release{}, fmt.Errorf("%w: repository is required", ErrInvalidRelease)
	}
	v, err := version.Parse(rel.Version)
	if err != nil {
		return Release{}, fmt.Errorf("storage: %w", err)
	}
	rel.Version = v.String()
	if strings.TrimSpace(rel.Tag) == "" {
		rel.Tag = v.Tag()
	}
	return rel, nil
}

// Record converts rel for the duplicate check.
func (r Release) Record() model.ReleaseRecord {
	return model.ReleaseRecord{Version: r.Version, Body: r.Body}
}

// Records converts published releases, skipping drafts.
func Records(releases []Release) []model.ReleaseRecord {
	out := make([]model.ReleaseRecord, 0, len(releases))
	for _, r := range releases {
		if r.Draft {
			continue
		}
		out = append(out, r.Record())
	}
	return out
}

// SortByVersion orders releases newest version first. Versions that no
// longer parse sort last.
func SortByVersion(releases []Release) {
	parsed := make(map[string]version.Version, len(releases))
	for _, r := range releases {
		if v, err := version.Parse(r.Version); err == nil {
			parsed[r.Version] = v
		}
	}
	less := func(a, b Release) bool {
		va, okA := parsed[a.Version]
		vb, okB := parsed[b.Version]
		switch {
		case okA && okB:
			return vb.Less(va)
		case okA != okB:
			return okA
		}
		return a.Version > b.Version
	}
	sort.SliceStable(releases, func(i, j int) bool { return less(releases[i], releases[j]) })
}
